package rebuf

import "fmt"

// cursor is a read-only position over a buffer's token sequence. It
// never outlives a single replay traversal. Container extent is
// derived from the declared counts on opener tokens; there are no end
// tokens to look for.
type cursor struct {
	toks []token
	pos  int
}

func (c *cursor) peek() (token, error) {
	if c.pos >= len(c.toks) {
		return token{}, ErrTruncated
	}
	return c.toks[c.pos], nil
}

func (c *cursor) next() (token, error) {
	tok, err := c.peek()
	if err != nil {
		return token{}, err
	}
	c.pos++
	return tok, nil
}

// expectEnd verifies the traversal consumed the whole sequence. A
// completed capture records exactly one value, so leftovers indicate
// an internal fault.
func (c *cursor) expectEnd() error {
	if c.pos != len(c.toks) {
		return fmt.Errorf("rebuf: %d tokens left after replay", len(c.toks)-c.pos)
	}
	return nil
}

// skipGroup advances over one complete value group.
func (c *cursor) skipGroup() error {
	tok, err := c.next()
	if err != nil {
		return err
	}
	return c.skipChildren(tok)
}

// skipChildren advances over the child groups belonging to tok.
func (c *cursor) skipChildren(tok token) error {
	switch tok.kind {
	case KindSome, KindNewtypeStruct, KindNewtypeVariant:
		return c.skipGroup()
	case KindSeq, KindTuple, KindTupleStruct, KindTupleVariant:
		for i := uint32(0); i < tok.n; i++ {
			if err := c.skipGroup(); err != nil {
				return err
			}
		}
	case KindMap:
		for i := uint32(0); i < tok.n; i++ {
			if err := c.skipGroup(); err != nil {
				return err
			}
			if err := c.skipGroup(); err != nil {
				return err
			}
		}
	case KindStruct, KindStructVariant:
		for i := uint32(0); i < tok.n; i++ {
			f, err := c.next()
			if err != nil {
				return err
			}
			if f.kind != KindField {
				return fmt.Errorf("rebuf: expected field token, found %s", f.kind)
			}
			if err := c.skipGroup(); err != nil {
				return err
			}
		}
	}
	return nil
}
