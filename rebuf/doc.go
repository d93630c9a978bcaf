// Package rebuf implements a format-agnostic capture/replay buffer for
// structured data.
//
// A Buffer records the shape and content of any value expressible in
// the generic structured-data model (scalars, optionals, sequences,
// maps, tuples, structs, enum variants) without fixing it to a concrete
// tree type and without committing to a wire format. Data flows in one
// direction only:
//
//	producer → Capture → Buffer → replay → consumer
//
// The Buffer is opaque: callers feed data in through the capture path
// and read it back out through the replay path, never inspecting the
// recorded token sequence directly.
//
// # Capturing
//
// A producer (a format reader, or the reflect walker behind Capture)
// drives a *Capture through the Sink protocol:
//
//	c := rebuf.NewCapture()
//	c.BeginMap(2)
//	c.Str("a")
//	c.Int64(1)
//	c.Str("b")
//	c.BeginSeq(2)
//	c.Bool(true)
//	c.None()
//	c.EndSeq()
//	c.EndMap()
//	buf, err := c.Finish()
//
// Arbitrary Go values can be captured directly:
//
//	buf, err := rebuf.CaptureValue(myValue)
//
// # Replaying
//
// Replay is non-destructive and repeatable. Self-describing replay
// pushes the recorded events into any Sink:
//
//	err := buf.ReplayInto(consumer)
//
// Hinted replay pulls values through a Reader, which checks each
// recorded token against the consumer's expectation and fails with a
// ShapeMismatchError on disagreement:
//
//	r := buf.Reader()
//	n, err := r.BeginSeq()
//
// Typed Go values can be reconstructed directly:
//
//	err := buf.Decode(&target)
//
// # Borrowed and owned payloads
//
// String content is stored by reference to the source string; the
// garbage collector keeps the backing memory alive for the life of the
// Buffer, so borrowing is always safe. Byte content may be borrowed
// (Bytes) or copied into buffer-private storage (OwnedBytes); a
// borrowed byte slice must not be mutated while the Buffer is live.
//
// A Buffer is immutable once Finish returns. Concurrent replays from
// multiple goroutines are safe; each traversal owns its own cursor.
package rebuf
