// Package wire implements the frame protocol shared by the compute server
// and client.
//
// Every message on the stream is a length-prefixed frame:
//
//	| u32 length | u32 type | payload fields... |
//
// The length counts the payload bytes (type discriminator included). Integer
// endianness is pinned at build time (see order.go); strings are
// `| u32 byteLen | utf-8 bytes |` and sequences are `| u32 count | elements |`.
// The same request variant travels in both directions: parameters on the way
// in, results on the way out.
//
// The one exception is the login frame, which is the first frame on a socket
// and carries bare credentials without a type discriminator (see login.go).
package wire

import "errors"

// RequestType is the payload type discriminator. Values are stable across
// client and server and must not be renumbered.
type RequestType uint32

const (
	TypeInvalidRequest RequestType = iota
	TypeSortArray
	TypeFindPrimeNumbers
	TypeCalculateFunction
	TypeCancelCurrentTask
	TypeProgressRange
	TypeProgressValue
)

// String returns the discriminator name for logs and metrics labels.
func (t RequestType) String() string {
	switch t {
	case TypeInvalidRequest:
		return "InvalidRequest"
	case TypeSortArray:
		return "SortArray"
	case TypeFindPrimeNumbers:
		return "FindPrimeNumbers"
	case TypeCalculateFunction:
		return "CalculateFunction"
	case TypeCancelCurrentTask:
		return "CancelCurrentTask"
	case TypeProgressRange:
		return "ProgressRange"
	case TypeProgressValue:
		return "ProgressValue"
	default:
		return "Unknown"
	}
}

// IsTask reports whether the type submits compute work. Only task submissions
// are fingerprinted and cached.
func (t RequestType) IsTask() bool {
	switch t {
	case TypeSortArray, TypeFindPrimeNumbers, TypeCalculateFunction:
		return true
	default:
		return false
	}
}

// ErrorCode is the wire error taxonomy carried by InvalidRequest.
type ErrorCode uint32

const (
	CodeUnspecified ErrorCode = iota
	CodeCorruptedData
	CodeInvalidRequestType
	CodeAlreadyRunningTask
	CodeNotRunningAnyTask
)

func (c ErrorCode) String() string {
	switch c {
	case CodeUnspecified:
		return "Unspecified"
	case CodeCorruptedData:
		return "CorruptedData"
	case CodeInvalidRequestType:
		return "InvalidRequestType"
	case CodeAlreadyRunningTask:
		return "AlreadyRunningTask"
	case CodeNotRunningAnyTask:
		return "NotRunningAnyTask"
	default:
		return "Unknown"
	}
}

// EquationType selects the polynomial evaluated by CalculateFunction.
type EquationType uint32

const (
	EquationLinear EquationType = iota
	EquationQuadratic
)

func (e EquationType) String() string {
	switch e {
	case EquationLinear:
		return "Linear"
	case EquationQuadratic:
		return "Quadratic"
	default:
		return "Unknown"
	}
}

// Request is one decoded protocol payload.
type Request interface {
	Type() RequestType
}

// InvalidRequest reports a protocol-level error to the peer.
type InvalidRequest struct {
	Code ErrorCode
	Text string
}

func (*InvalidRequest) Type() RequestType { return TypeInvalidRequest }

// SortArray carries the numbers to sort, and sorted numbers on return.
type SortArray struct {
	Numbers []int32
}

func (*SortArray) Type() RequestType { return TypeSortArray }

// FindPrimeNumbers carries an inclusive range, and the ascending primes
// within it on return.
type FindPrimeNumbers struct {
	XFrom  int32
	XTo    int32
	Primes []int32
}

func (*FindPrimeNumbers) Type() RequestType { return TypeFindPrimeNumbers }

// Point is one tabulated (x, f(x)) pair.
type Point struct {
	X int32
	Y int32
}

// CalculateFunction carries polynomial parameters, and the tabulated points
// on return. Evaluation is wrapping 32-bit signed arithmetic.
type CalculateFunction struct {
	Equation EquationType
	XFrom    int32
	XTo      int32
	XStep    int32
	A        int32
	B        int32
	C        int32
	Points   []Point
}

func (*CalculateFunction) Type() RequestType { return TypeCalculateFunction }

// CancelCurrentTask requests cancellation of the sender's running task, and
// acknowledges that cancellation on the way back.
type CancelCurrentTask struct{}

func (*CancelCurrentTask) Type() RequestType { return TypeCancelCurrentTask }

// ProgressRange announces the progress scale for a started task.
// Server to client only.
type ProgressRange struct {
	Min int32
	Max int32
}

func (*ProgressRange) Type() RequestType { return TypeProgressRange }

// ProgressValue reports completed progress within the announced range.
// Server to client only.
type ProgressValue struct {
	Value int32
}

func (*ProgressValue) Type() RequestType { return TypeProgressValue }

// LoginData is the credential pair carried by the discriminator-free first
// frame on a socket.
type LoginData struct {
	Username string
	Password string
}

// Decode failure taxonomy. The dispatcher maps these onto wire error codes.
var (
	// ErrCorrupted is any structural decode failure: truncated fields,
	// length mismatch, invalid UTF-8, impossible counts.
	ErrCorrupted = errors.New("corrupted payload")

	// ErrUnknownType is a discriminator this peer does not recognize.
	ErrUnknownType = errors.New("unknown request type")

	// ErrFrameTooLarge is a length prefix above the configured bound.
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
)
