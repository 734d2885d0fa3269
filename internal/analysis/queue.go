package analysis

import (
	"container/heap"
	"time"

	"github.com/standardbeagle/lspcached/internal/types"
)

// QueueItem is one unit of analysis work: a file to (re)analyze.
type QueueItem struct {
	Path       string
	Language   string
	TaskType   types.AnalysisTaskType
	Priority   types.Priority
	EnqueuedAt time.Time

	seq   int64
	index int
}

// priorityQueue implements container/heap.Interface: highest Priority
// dequeues first, FIFO (by enqueue sequence) within a priority tier.
type priorityQueue []*QueueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].Priority != pq[j].Priority {
		return pq[i].Priority > pq[j].Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*QueueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

var _ heap.Interface = (*priorityQueue)(nil)
