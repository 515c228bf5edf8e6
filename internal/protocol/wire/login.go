package wire

import "fmt"

// EncodeLogin serializes the credential frame sent first on every socket,
// length prefix included. Unlike every other frame it carries no type
// discriminator: the payload is the username and password strings back to
// back.
func EncodeLogin(ld LoginData) []byte {
	a := newAppender(12 + len(ld.Username) + len(ld.Password))
	a.str(ld.Username)
	a.str(ld.Password)
	frame := make([]byte, 4+len(a.buf))
	Order.PutUint32(frame[:4], uint32(len(a.buf)))
	copy(frame[4:], a.buf)
	return frame
}

// DecodeLogin parses the payload of the credential frame. Trailing bytes are
// corruption, the same as for discriminated payloads.
func DecodeLogin(payload []byte) (LoginData, error) {
	r := &reader{buf: payload}
	username, err := r.str()
	if err != nil {
		return LoginData{}, fmt.Errorf("decode login: %w", err)
	}
	password, err := r.str()
	if err != nil {
		return LoginData{}, fmt.Errorf("decode login: %w", err)
	}
	if r.remaining() != 0 {
		return LoginData{}, fmt.Errorf("decode login: %w: %d trailing bytes", ErrCorrupted, r.remaining())
	}
	return LoginData{Username: username, Password: password}, nil
}
