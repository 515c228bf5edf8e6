package wire

import (
	"fmt"
	"io"
)

// DefaultMaxFrameSize bounds the payload length a peer will accept. Large
// enough for multi-million element results, small enough that a corrupt
// length prefix cannot exhaust memory.
const DefaultMaxFrameSize = 64 << 20

// FrameReader reassembles length-prefixed frames from a byte stream. TCP
// delivers arbitrary read boundaries; ReadFull absorbs both split frames and
// several frames arriving back to back, as long as reads on one stream stay
// serialized.
type FrameReader struct {
	r       io.Reader
	maxSize uint32
}

// NewFrameReader wraps r. A maxSize of 0 selects DefaultMaxFrameSize.
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameReader{r: r, maxSize: maxSize}
}

// ReadFrame blocks until one complete payload is available and returns it.
// A zero-length payload is legal and returns an empty slice.
//
// io.EOF on a frame boundary is returned unwrapped so callers can detect
// normal peer disconnect; EOF inside a frame surfaces as io.ErrUnexpectedEOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	length := Order.Uint32(hdr[:])
	if length > fr.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, length, fr.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
