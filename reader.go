package kraken

import "fmt"

// byteCursor reads bounds-checked fields from a byte slice.
type byteCursor struct {
	data []byte // The byte slice to read from.
	pos  int    // The current position in the byte slice.
}

// remaining returns the number of unread bytes.
func (c *byteCursor) remaining() int {
	return len(c.data) - c.pos
}

// need fails with ErrTruncatedInput if fewer than n bytes remain.
func (c *byteCursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at %d, have %d", ErrTruncatedInput, n, c.pos, c.remaining())
	}

	return nil
}

// readByte reads one byte.
func (c *byteCursor) readByte() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}

	b := c.data[c.pos]
	c.pos++

	return b, nil
}

// readBE24 reads a big-endian 24-bit value.
func (c *byteCursor) readBE24() (uint32, error) {
	if err := c.need(3); err != nil {
		return 0, err
	}

	p := c.data[c.pos:]
	c.pos += 3

	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]), nil
}

// peekBE24 returns the next big-endian 24-bit value without advancing.
func (c *byteCursor) peekBE24() (uint32, error) {
	if err := c.need(3); err != nil {
		return 0, err
	}

	p := c.data[c.pos:]

	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]), nil
}

// readBytes returns the next n bytes as a subslice.
func (c *byteCursor) readBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}

	b := c.data[c.pos : c.pos+n]
	c.pos += n

	return b, nil
}

// le16 reads a little-endian uint16 at i from b; the caller guarantees bounds.
func le16(b []byte, i int) uint32 {
	return uint32(b[i]) | uint32(b[i+1])<<8
}

// le24 reads a little-endian 24-bit value at i from b.
func le24(b []byte, i int) uint32 {
	return uint32(b[i]) | uint32(b[i+1])<<8 | uint32(b[i+2])<<16
}
