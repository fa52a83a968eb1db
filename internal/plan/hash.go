package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Hash returns a stable fingerprint of the reduced node set: the same root
// over the same task definitions always yields the same value, independent
// of input ordering. Used purely for log/trace correlation (see
// SPEC_FULL §11 "Plan fingerprinting for logs") — it carries no scheduling
// semantics.
//
// Adapted from the teacher's TaskGraph.computeGraphHash: nodes and edges are
// written in canonical (sorted) order into a single running hash so result
// is insertion-order invariant.
func (p *Plan) Hash() string { return p.hashed }

func computeHash(p *Plan) string {
	h := sha256.New()

	names := p.UsedNames()
	writeField := func(s string) {
		n := uint64(len(s))
		var lenBytes [8]byte
		for i := 0; i < 8; i++ {
			lenBytes[7-i] = byte(n >> (8 * i))
		}
		h.Write(lenBytes[:])
		h.Write([]byte(s))
	}

	writeField(p.Root)
	for _, name := range names {
		writeField(name)
		n := p.byID[name]
		deps := append([]string(nil), n.Deps...)
		sort.Strings(deps)
		for _, d := range deps {
			writeField(d)
		}
		writeField(string(n.Order))
	}

	return hex.EncodeToString(h.Sum(nil))
}
