package compute

import (
	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute/chunk"
)

// primesRunner enumerates primes per disjoint sub-range; chunks being
// ascending and disjoint makes the reduction a plain ordered concatenation.
type primesRunner struct {
	req   *wire.FindPrimeNumbers
	spans []chunk.Span
	slots [][]int32
}

func newPrimesRunner(req *wire.FindPrimeNumbers, cfg Config) *primesRunner {
	var total int64
	if req.XFrom <= req.XTo {
		total = int64(req.XTo) - int64(req.XFrom) + 1
	}
	spans := chunk.Plan(total, cfg.MinChunkSize, cfg.MaxChunks)
	return &primesRunner{
		req:   req,
		spans: spans,
		slots: make([][]int32, len(spans)),
	}
}

func (r *primesRunner) chunks() int {
	return len(r.spans)
}

func (r *primesRunner) run(i int) {
	s := r.spans[i]
	lo := int64(r.req.XFrom) + s.Lo
	hi := int64(r.req.XFrom) + s.Hi - 1
	r.slots[i] = primesInRange(int32(lo), int32(hi))
}

func (r *primesRunner) reduce() wire.Request {
	var n int
	for _, slot := range r.slots {
		n += len(slot)
	}
	primes := make([]int32, 0, n)
	for _, slot := range r.slots {
		primes = append(primes, slot...)
	}
	r.req.Primes = primes
	return r.req
}

// primesInRange returns the ascending primes within [lo, hi]. 2 is handled
// explicitly; odd candidates are walked with step 2. Iteration runs in
// 64-bit so a range ending at MaxInt32 terminates.
func primesInRange(lo, hi int32) []int32 {
	var primes []int32
	if lo <= 2 && 2 <= hi {
		primes = append(primes, 2)
	}

	start := int64(lo)
	if start < 3 {
		start = 3
	}
	if start%2 == 0 {
		start++
	}
	for n := start; n <= int64(hi); n += 2 {
		if isPrime(int32(n)) {
			primes = append(primes, int32(n))
		}
	}
	return primes
}

// isPrime is trial division by odd divisors up to the square root, with 2
// explicit. Numbers below 2 are not prime. The divisor product is tested in
// 64-bit because d*d overflows int32 near the upper bound.
func isPrime(n int32) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for d := int64(3); d*d <= int64(n); d += 2 {
		if int64(n)%d == 0 {
			return false
		}
	}
	return true
}
