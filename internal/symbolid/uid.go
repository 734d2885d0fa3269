package symbolid

import (
	"strings"

	"github.com/standardbeagle/lspcached/internal/hashutil"
	"github.com/standardbeagle/lspcached/internal/types"
)

// uidHasher computes UID digests independent of the caller's configured
// content-hash algorithm: UID identity is a normalization concern, not a
// file-change-detection one, so it always uses the same function.
var uidHasher = hashutil.NewHasher(hashutil.AlgorithmBlake3, 0)

// Components are the normalized inputs that determine a SymbolUID.
type Components struct {
	Language    string
	FQNParts    []string // normalized FQN components, outermost first
	Signature   string   // raw signature; normalized internally
	Kind        types.SymbolKind
	Containment []string // normalized containing-symbol names, outermost first
}

// Compute derives the stable SymbolUID for c. Two Components with the same
// language, normalized FQN, normalized signature, kind, and containment
// chain always produce the same UID; any difference in those fields changes
// it.
func Compute(c Components) types.SymbolUID {
	var b strings.Builder
	b.WriteString(strings.ToLower(c.Language))
	b.WriteByte(0)
	b.WriteString(string(c.Kind))
	b.WriteByte(0)

	for _, part := range c.FQNParts {
		b.WriteString(NormalizeSymbolName(part, c.Language))
		b.WriteByte('/')
	}
	b.WriteByte(0)

	b.WriteString(NormalizeSignature(c.Signature, c.Language))
	b.WriteByte(0)

	for _, container := range c.Containment {
		b.WriteString(NormalizeSymbolName(container, c.Language))
		b.WriteByte('/')
	}

	digest := uidHasher.Hash([]byte(b.String()))
	return types.SymbolUID(digest)
}

// ComputeFromFQN is a convenience wrapper for callers that only have a raw
// FQN string (language-conventional separators) rather than pre-split
// components.
func ComputeFromFQN(language, fqn, signature string, kind types.SymbolKind, containment []string) types.SymbolUID {
	return Compute(Components{
		Language:    language,
		FQNParts:    SplitQualifiedName(fqn, language),
		Signature:   signature,
		Kind:        kind,
		Containment: containment,
	})
}
