package wire

import "fmt"

// appender builds a payload in wire order.
type appender struct {
	buf []byte
}

func newAppender(capacity int) *appender {
	return &appender{buf: make([]byte, 0, capacity)}
}

func (a *appender) u32(v uint32) {
	var b [4]byte
	Order.PutUint32(b[:], v)
	a.buf = append(a.buf, b[:]...)
}

func (a *appender) i32(v int32) {
	a.u32(uint32(v))
}

func (a *appender) str(s string) {
	a.u32(uint32(len(s)))
	a.buf = append(a.buf, s...)
}

func (a *appender) i32s(vs []int32) {
	a.u32(uint32(len(vs)))
	for _, v := range vs {
		a.i32(v)
	}
}

// Encode serializes a request into a complete frame, length prefix included.
// It panics on a Request implementation outside this package; the variant set
// is closed.
func Encode(req Request) []byte {
	payload := EncodePayload(req)
	frame := make([]byte, 4+len(payload))
	Order.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	return frame
}

// EncodePayload serializes the payload portion of a frame: the type
// discriminator followed by the variant fields.
func EncodePayload(req Request) []byte {
	switch r := req.(type) {
	case *InvalidRequest:
		a := newAppender(12 + len(r.Text))
		a.u32(uint32(TypeInvalidRequest))
		a.u32(uint32(r.Code))
		a.str(r.Text)
		return a.buf
	case *SortArray:
		a := newAppender(8 + 4*len(r.Numbers))
		a.u32(uint32(TypeSortArray))
		a.i32s(r.Numbers)
		return a.buf
	case *FindPrimeNumbers:
		a := newAppender(16 + 4*len(r.Primes))
		a.u32(uint32(TypeFindPrimeNumbers))
		a.i32(r.XFrom)
		a.i32(r.XTo)
		a.i32s(r.Primes)
		return a.buf
	case *CalculateFunction:
		a := newAppender(36 + 8*len(r.Points))
		a.u32(uint32(TypeCalculateFunction))
		a.u32(uint32(r.Equation))
		a.i32(r.XFrom)
		a.i32(r.XTo)
		a.i32(r.XStep)
		a.i32(r.A)
		a.i32(r.B)
		a.i32(r.C)
		a.u32(uint32(len(r.Points)))
		for _, p := range r.Points {
			a.i32(p.X)
			a.i32(p.Y)
		}
		return a.buf
	case *CancelCurrentTask:
		a := newAppender(4)
		a.u32(uint32(TypeCancelCurrentTask))
		return a.buf
	case *ProgressRange:
		a := newAppender(12)
		a.u32(uint32(TypeProgressRange))
		a.i32(r.Min)
		a.i32(r.Max)
		return a.buf
	case *ProgressValue:
		a := newAppender(8)
		a.u32(uint32(TypeProgressValue))
		a.i32(r.Value)
		return a.buf
	default:
		panic(fmt.Sprintf("wire: cannot encode %T", req))
	}
}
