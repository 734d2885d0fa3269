package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/lspcached/internal/types"
)

func TestContainmentEdgesFollowsParentIndex(t *testing.T) {
	symbols := []Symbol{
		{Name: "Outer", ParentIndex: -1},
		{Name: "Inner", ParentIndex: 0},
		{Name: "Detached", ParentIndex: -1},
	}

	edges := ContainmentEdges(symbols)
	assert.Len(t, edges, 1)
	assert.Equal(t, 0, edges[0].SourceIndex)
	assert.Equal(t, 1, edges[0].TargetIndex)
	assert.Equal(t, types.RelationContains, edges[0].Relation)
}

func TestContainmentEdgesIgnoresOutOfRangeParent(t *testing.T) {
	symbols := []Symbol{{Name: "Lonely", ParentIndex: 99}}
	assert.Empty(t, ContainmentEdges(symbols))
}

func TestUnavailableErrorNamesLanguage(t *testing.T) {
	err := Unavailable{Language: "cobol"}
	assert.Contains(t, err.Error(), "cobol")
}
