package wire

import (
	"fmt"
	"unicode/utf8"
)

// reader consumes a payload in wire order with bounds checks.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: truncated integer at offset %d", ErrCorrupted, r.off)
	}
	v := Order.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.remaining()) {
		return "", fmt.Errorf("%w: string length %d exceeds %d remaining bytes", ErrCorrupted, n, r.remaining())
	}
	b := r.buf[r.off : r.off+int(n)]
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: string is not valid utf-8", ErrCorrupted)
	}
	r.off += int(n)
	return string(b), nil
}

func (r *reader) i32s() ([]int32, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*4 > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: sequence of %d elements exceeds %d remaining bytes", ErrCorrupted, n, r.remaining())
	}
	vs := make([]int32, n)
	for i := range vs {
		vs[i], _ = r.i32()
	}
	return vs, nil
}

// PeekType reads the discriminator without decoding the rest of the payload.
func PeekType(payload []byte) (RequestType, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("%w: payload shorter than discriminator", ErrCorrupted)
	}
	return RequestType(Order.Uint32(payload)), nil
}

// DecodePayload parses one payload (discriminator plus fields) into its
// request variant. Structural failures return ErrCorrupted; a discriminator
// outside the known set returns ErrUnknownType. The payload must be consumed
// exactly: trailing bytes are corruption.
func DecodePayload(payload []byte) (Request, error) {
	r := &reader{buf: payload}
	t, err := r.u32()
	if err != nil {
		return nil, err
	}

	var req Request
	switch RequestType(t) {
	case TypeInvalidRequest:
		req, err = decodeInvalidRequest(r)
	case TypeSortArray:
		req, err = decodeSortArray(r)
	case TypeFindPrimeNumbers:
		req, err = decodeFindPrimeNumbers(r)
	case TypeCalculateFunction:
		req, err = decodeCalculateFunction(r)
	case TypeCancelCurrentTask:
		req = &CancelCurrentTask{}
	case TypeProgressRange:
		req, err = decodeProgressRange(r)
	case TypeProgressValue:
		req, err = decodeProgressValue(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", RequestType(t), err)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("decode %s: %w: %d trailing bytes", RequestType(t), ErrCorrupted, r.remaining())
	}
	return req, nil
}

func decodeInvalidRequest(r *reader) (Request, error) {
	code, err := r.u32()
	if err != nil {
		return nil, err
	}
	text, err := r.str()
	if err != nil {
		return nil, err
	}
	return &InvalidRequest{Code: ErrorCode(code), Text: text}, nil
}

func decodeSortArray(r *reader) (Request, error) {
	nums, err := r.i32s()
	if err != nil {
		return nil, err
	}
	return &SortArray{Numbers: nums}, nil
}

func decodeFindPrimeNumbers(r *reader) (Request, error) {
	xFrom, err := r.i32()
	if err != nil {
		return nil, err
	}
	xTo, err := r.i32()
	if err != nil {
		return nil, err
	}
	primes, err := r.i32s()
	if err != nil {
		return nil, err
	}
	return &FindPrimeNumbers{XFrom: xFrom, XTo: xTo, Primes: primes}, nil
}

func decodeCalculateFunction(r *reader) (Request, error) {
	eq, err := r.u32()
	if err != nil {
		return nil, err
	}
	if EquationType(eq) != EquationLinear && EquationType(eq) != EquationQuadratic {
		return nil, fmt.Errorf("%w: equation type %d out of range", ErrCorrupted, eq)
	}
	req := &CalculateFunction{Equation: EquationType(eq)}
	for _, dst := range []*int32{&req.XFrom, &req.XTo, &req.XStep, &req.A, &req.B, &req.C} {
		if *dst, err = r.i32(); err != nil {
			return nil, err
		}
	}
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n)*8 > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: sequence of %d points exceeds %d remaining bytes", ErrCorrupted, n, r.remaining())
	}
	req.Points = make([]Point, n)
	for i := range req.Points {
		req.Points[i].X, _ = r.i32()
		req.Points[i].Y, _ = r.i32()
	}
	return req, nil
}

func decodeProgressRange(r *reader) (Request, error) {
	min, err := r.i32()
	if err != nil {
		return nil, err
	}
	max, err := r.i32()
	if err != nil {
		return nil, err
	}
	return &ProgressRange{Min: min, Max: max}, nil
}

func decodeProgressValue(r *reader) (Request, error) {
	v, err := r.i32()
	if err != nil {
		return nil, err
	}
	return &ProgressValue{Value: v}, nil
}
