package rebuf

import "strings"

// payloadRef identifies one entry in a buffer's payload store. Zero is
// the null reference; live refs are 1-based indexes into the span
// table.
type payloadRef uint32

const noPayload payloadRef = 0

type payloadMode uint8

const (
	spanString payloadMode = iota // string header, borrowed or cloned
	spanBytes                     // borrowed view of caller memory
	spanArena                     // owned copy in the store's arena
)

// payloadStore holds the variable-length content referenced by tokens.
// Borrowed entries keep the source string or slice header; the garbage
// collector extends the backing memory's lifetime, so a borrowed entry
// is valid as long as the store is. Owned byte entries are copied into
// a single private arena.
type payloadStore struct {
	arena []byte
	spans []span
}

type span struct {
	s    string // spanString
	b    []byte // spanBytes
	off  uint32 // spanArena
	n    uint32 // spanArena
	mode payloadMode
}

// addString records s by reference. No copy; Go strings are immutable,
// so the entry cannot be invalidated.
func (p *payloadStore) addString(s string) payloadRef {
	p.spans = append(p.spans, span{s: s, mode: spanString})
	return payloadRef(len(p.spans))
}

// addStringCopy records a private copy of s. Use when s aliases
// mutable memory (e.g. an unsafe string over a reused scratch buffer).
func (p *payloadStore) addStringCopy(s string) payloadRef {
	return p.addString(strings.Clone(s))
}

// addBytes records b by reference. The caller must not mutate b while
// the store is live.
func (p *payloadStore) addBytes(b []byte) payloadRef {
	p.spans = append(p.spans, span{b: b, mode: spanBytes})
	return payloadRef(len(p.spans))
}

// addBytesCopy copies b into the store's arena.
func (p *payloadStore) addBytesCopy(b []byte) payloadRef {
	off := uint32(len(p.arena))
	p.arena = append(p.arena, b...)
	p.spans = append(p.spans, span{off: off, n: uint32(len(b)), mode: spanArena})
	return payloadRef(len(p.spans))
}

// bytes resolves r to its byte content. O(1); never fails for a ref
// minted by this store.
func (p *payloadStore) bytes(r payloadRef) []byte {
	sp := &p.spans[r-1]
	switch sp.mode {
	case spanString:
		return []byte(sp.s)
	case spanBytes:
		return sp.b
	default:
		return p.arena[sp.off : sp.off+sp.n : sp.off+sp.n]
	}
}

// str resolves r to its text content. O(1) and copy-free for string
// entries, which is every name and every captured string.
func (p *payloadStore) str(r payloadRef) string {
	sp := &p.spans[r-1]
	switch sp.mode {
	case spanString:
		return sp.s
	case spanBytes:
		return string(sp.b)
	default:
		return string(p.arena[sp.off : sp.off+sp.n])
	}
}
