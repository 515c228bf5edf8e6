package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// slowReader delivers at most chunk bytes per Read to simulate arbitrary TCP
// segmentation.
type slowReader struct {
	data  []byte
	chunk int
	off   int
}

func (s *slowReader) Read(p []byte) (int, error) {
	if s.off >= len(s.data) {
		return 0, io.EOF
	}
	n := s.chunk
	if n > len(p) {
		n = len(p)
	}
	if s.off+n > len(s.data) {
		n = len(s.data) - s.off
	}
	copy(p, s.data[s.off:s.off+n])
	s.off += n
	return n, nil
}

func frameWithPayload(payload []byte) []byte {
	frame := make([]byte, 4+len(payload))
	Order.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	return frame
}

func u32bytes(vs ...uint32) []byte {
	buf := make([]byte, 0, 4*len(vs))
	var b [4]byte
	for _, v := range vs {
		Order.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}
	return buf
}

func decodeFrame(t *testing.T, frame []byte) Request {
	t.Helper()
	fr := NewFrameReader(bytes.NewReader(frame), 0)
	payload, err := fr.ReadFrame()
	require.NoError(t, err)
	req, err := DecodePayload(payload)
	require.NoError(t, err)
	return req
}

// ============================================================================
// Round-Trip Tests
// ============================================================================

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Run("InvalidRequest", func(t *testing.T) {
		orig := &InvalidRequest{Code: CodeAlreadyRunningTask, Text: "task already running for 10.0.0.7:51234"}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("InvalidRequestUnicodeText", func(t *testing.T) {
		orig := &InvalidRequest{Code: CodeCorruptedData, Text: "данные повреждены"}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("SortArray", func(t *testing.T) {
		orig := &SortArray{Numbers: []int32{5, -3, 0, 2147483647, -2147483648, 42}}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("SortArrayEmpty", func(t *testing.T) {
		orig := &SortArray{Numbers: []int32{}}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("FindPrimeNumbersRequest", func(t *testing.T) {
		orig := &FindPrimeNumbers{XFrom: 1, XTo: 1000, Primes: []int32{}}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("FindPrimeNumbersResult", func(t *testing.T) {
		orig := &FindPrimeNumbers{XFrom: 1, XTo: 12, Primes: []int32{2, 3, 5, 7, 11}}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("CalculateFunctionRequest", func(t *testing.T) {
		orig := &CalculateFunction{
			Equation: EquationLinear,
			XFrom:    -10, XTo: 10, XStep: 2,
			A: 3, B: -7,
			Points: []Point{},
		}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("CalculateFunctionResult", func(t *testing.T) {
		orig := &CalculateFunction{
			Equation: EquationQuadratic,
			XFrom:    0, XTo: 3, XStep: 1,
			A: 1, B: 2, C: 3,
			Points: []Point{{0, 3}, {1, 6}, {2, 11}, {3, 18}},
		}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("CancelCurrentTask", func(t *testing.T) {
		orig := &CancelCurrentTask{}
		frame := Encode(orig)
		require.Len(t, frame, 8)
		assert.Equal(t, orig, decodeFrame(t, frame))
	})

	t.Run("ProgressRange", func(t *testing.T) {
		orig := &ProgressRange{Min: 0, Max: 37}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})

	t.Run("ProgressValue", func(t *testing.T) {
		orig := &ProgressValue{Value: 12}
		assert.Equal(t, orig, decodeFrame(t, Encode(orig)))
	})
}

// ============================================================================
// PeekType Tests
// ============================================================================

func TestPeekType(t *testing.T) {
	t.Run("ReadsDiscriminator", func(t *testing.T) {
		payload := EncodePayload(&ProgressValue{Value: 5})
		typ, err := PeekType(payload)
		require.NoError(t, err)
		assert.Equal(t, TypeProgressValue, typ)
	})

	t.Run("ShortPayload", func(t *testing.T) {
		_, err := PeekType([]byte{1, 2})
		require.ErrorIs(t, err, ErrCorrupted)
	})
}

// ============================================================================
// Corrupt Payload Tests
// ============================================================================

func TestDecodeCorruptPayloads(t *testing.T) {
	t.Run("EmptyPayload", func(t *testing.T) {
		_, err := DecodePayload(nil)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("UnknownDiscriminator", func(t *testing.T) {
		_, err := DecodePayload(u32bytes(42))
		require.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("TruncatedSequenceCount", func(t *testing.T) {
		payload := append(u32bytes(uint32(TypeSortArray)), 0x01)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("SequenceCountExceedsPayload", func(t *testing.T) {
		payload := u32bytes(uint32(TypeSortArray), 10, 7)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("HugeCountDoesNotOverflow", func(t *testing.T) {
		// 0xFFFFFFFF elements would wrap a 32-bit byte count to 4·n mod 2^32.
		payload := u32bytes(uint32(TypeSortArray), 0xFFFFFFFF, 1)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		payload := append(u32bytes(uint32(TypeCancelCurrentTask)), 0x00)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
		assert.Contains(t, err.Error(), "trailing")
	})

	t.Run("StringLengthExceedsPayload", func(t *testing.T) {
		payload := u32bytes(uint32(TypeInvalidRequest), uint32(CodeUnspecified), 100)
		payload = append(payload, 'a', 'b', 'c')
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("StringNotUTF8", func(t *testing.T) {
		payload := u32bytes(uint32(TypeInvalidRequest), uint32(CodeUnspecified), 2)
		payload = append(payload, 0xFF, 0xFE)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
		assert.Contains(t, err.Error(), "utf-8")
	})

	t.Run("EquationTypeOutOfRange", func(t *testing.T) {
		payload := u32bytes(uint32(TypeCalculateFunction), 7, 0, 10, 1, 1, 1, 1, 0)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
		assert.Contains(t, err.Error(), "equation")
	})

	t.Run("PointCountExceedsPayload", func(t *testing.T) {
		payload := u32bytes(uint32(TypeCalculateFunction), 0, 0, 10, 1, 1, 1, 1, 5)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("ProgressRangeTruncated", func(t *testing.T) {
		payload := u32bytes(uint32(TypeProgressRange), 0)
		_, err := DecodePayload(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})
}

// ============================================================================
// Login Frame Tests
// ============================================================================

func TestLoginFrame(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		frame := EncodeLogin(LoginData{Username: "alice", Password: "s3cret"})
		fr := NewFrameReader(bytes.NewReader(frame), 0)
		payload, err := fr.ReadFrame()
		require.NoError(t, err)

		ld, err := DecodeLogin(payload)
		require.NoError(t, err)
		assert.Equal(t, "alice", ld.Username)
		assert.Equal(t, "s3cret", ld.Password)
	})

	t.Run("HasNoDiscriminator", func(t *testing.T) {
		frame := EncodeLogin(LoginData{Username: "alice", Password: "s3cret"})
		// Payload starts directly with the username length, not a type field.
		assert.Equal(t, uint32(5), Order.Uint32(frame[4:8]))
	})

	t.Run("EmptyCredentials", func(t *testing.T) {
		ld, err := DecodeLogin(u32bytes(0, 0))
		require.NoError(t, err)
		assert.Equal(t, LoginData{}, ld)
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		payload := append(u32bytes(0, 0), 0x01)
		_, err := DecodeLogin(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("TruncatedPassword", func(t *testing.T) {
		payload := u32bytes(1)
		payload = append(payload, 'a')
		payload = append(payload, u32bytes(10)...)
		payload = append(payload, 'b', 'c')
		_, err := DecodeLogin(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("UsernameNotUTF8", func(t *testing.T) {
		payload := u32bytes(2)
		payload = append(payload, 0xC0, 0x80)
		payload = append(payload, u32bytes(0)...)
		_, err := DecodeLogin(payload)
		require.ErrorIs(t, err, ErrCorrupted)
	})
}

// ============================================================================
// Frame Reassembly Tests
// ============================================================================

func TestFrameReader(t *testing.T) {
	frames := [][]byte{
		Encode(&ProgressRange{Min: 0, Max: 100}),
		Encode(&ProgressValue{Value: 50}),
		Encode(&SortArray{Numbers: []int32{3, 1, 2}}),
	}
	var stream []byte
	for _, f := range frames {
		stream = append(stream, f...)
	}

	t.Run("ByteByByteDelivery", func(t *testing.T) {
		fr := NewFrameReader(&slowReader{data: stream, chunk: 1}, 0)
		for _, f := range frames {
			payload, err := fr.ReadFrame()
			require.NoError(t, err)
			assert.Equal(t, f[4:], payload)
		}
	})

	t.Run("CoalescedDelivery", func(t *testing.T) {
		fr := NewFrameReader(&slowReader{data: stream, chunk: len(stream)}, 0)
		for _, f := range frames {
			payload, err := fr.ReadFrame()
			require.NoError(t, err)
			assert.Equal(t, f[4:], payload)
		}
	})

	t.Run("ZeroLengthPayload", func(t *testing.T) {
		fr := NewFrameReader(bytes.NewReader(u32bytes(0)), 0)
		payload, err := fr.ReadFrame()
		require.NoError(t, err)
		assert.Empty(t, payload)
	})

	t.Run("EOFOnFrameBoundary", func(t *testing.T) {
		fr := NewFrameReader(bytes.NewReader(frames[0]), 0)
		_, err := fr.ReadFrame()
		require.NoError(t, err)

		_, err = fr.ReadFrame()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("EOFMidHeader", func(t *testing.T) {
		fr := NewFrameReader(bytes.NewReader(frames[0][:2]), 0)
		_, err := fr.ReadFrame()
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("EOFMidPayload", func(t *testing.T) {
		fr := NewFrameReader(bytes.NewReader(frames[2][:7]), 0)
		_, err := fr.ReadFrame()
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("RejectsOversizedFrame", func(t *testing.T) {
		// First payload is 12 bytes and fits exactly, second is 8, third is
		// 20 and exceeds the limit.
		fr := NewFrameReader(bytes.NewReader(stream), 12)
		_, err := fr.ReadFrame()
		require.NoError(t, err)
		_, err = fr.ReadFrame()
		require.NoError(t, err)
		_, err = fr.ReadFrame()
		require.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("RejectsCorruptLengthBeforeAllocating", func(t *testing.T) {
		fr := NewFrameReader(bytes.NewReader(u32bytes(DefaultMaxFrameSize+1)), 0)
		_, err := fr.ReadFrame()
		require.ErrorIs(t, err, ErrFrameTooLarge)
	})
}

// ============================================================================
// Enum String Tests
// ============================================================================

func TestRequestTypeString(t *testing.T) {
	assert.Equal(t, "SortArray", TypeSortArray.String())
	assert.Equal(t, "CancelCurrentTask", TypeCancelCurrentTask.String())
	assert.Equal(t, "Unknown", RequestType(99).String())
}

func TestRequestTypeIsTask(t *testing.T) {
	assert.True(t, TypeSortArray.IsTask())
	assert.True(t, TypeFindPrimeNumbers.IsTask())
	assert.True(t, TypeCalculateFunction.IsTask())
	assert.False(t, TypeInvalidRequest.IsTask())
	assert.False(t, TypeCancelCurrentTask.IsTask())
	assert.False(t, TypeProgressRange.IsTask())
	assert.False(t, TypeProgressValue.IsTask())
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "Unspecified", CodeUnspecified.String())
	assert.Equal(t, "NotRunningAnyTask", CodeNotRunningAnyTask.String())
	assert.Equal(t, "Unknown", ErrorCode(99).String())
}
