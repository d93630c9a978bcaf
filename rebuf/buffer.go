package rebuf

// Buffer is an opaque, immutable recording of one structured value:
// an ordered token sequence plus the payload store its text and byte
// content lives in. A Buffer is created only by a completed Capture,
// never mutated afterwards, and may be replayed any number of times,
// including concurrently.
//
// The token sequence and payload store are deliberately unexported.
// Callers feed data in by capturing and read it out by replaying;
// there is no inspection surface, which keeps every produced Buffer
// format-agnostic.
type Buffer struct {
	tokens  []token
	payload payloadStore
}

// Capture decomposes an arbitrary Go value through the reflect walker
// and records it. Strings are borrowed, byte slices are borrowed
// (callers must not mutate them afterwards), struct fields honor the
// `rebuf` tag. See CaptureValue in reflect.go for the exact mapping.
func CaptureValue(v any, opts ...CaptureOption) (*Buffer, error) {
	c := NewCapture(opts...)
	if err := captureValue(c, v); err != nil {
		return nil, err
	}
	return c.Finish()
}

// ReplayInto replays the recorded value into s in self-describing
// mode: each token's own tag drives the matching Sink call. The replay
// is side-effect-free on the Buffer. An error returned by s aborts the
// replay and is returned unchanged; the consumer must then assume it
// received a truncated prefix of calls.
func (b *Buffer) ReplayInto(s Sink) error {
	cur := cursor{toks: b.tokens}
	if err := replayValue(&cur, &b.payload, s); err != nil {
		return err
	}
	return cur.expectEnd()
}

// Reader returns a hinted-mode replay over the buffer. Each Reader
// owns its position; independent Readers over one Buffer are safe
// concurrently.
func (b *Buffer) Reader() *Reader {
	return &Reader{buf: b, cur: cursor{toks: b.tokens}}
}

// Capture must satisfy the consumer protocol it records.
var _ Sink = (*Capture)(nil)
