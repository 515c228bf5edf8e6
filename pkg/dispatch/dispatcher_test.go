package dispatch

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyntheticEdelweiss/ClientServerExample/internal/protocol/wire"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/cache"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/compute"
	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/identity"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// fakeSender captures every frame the dispatcher writes to one client.
type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (s *fakeSender) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.frames = append(s.frames, cp)
	return nil
}

func (s *fakeSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// requests decodes the captured frames in write order. Frames that do not
// decode are skipped so the helper is safe to poll.
func (s *fakeSender) requests() []wire.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wire.Request
	for _, f := range s.frames {
		if len(f) < 4 {
			continue
		}
		if req, err := wire.DecodePayload(f[4:]); err == nil {
			out = append(out, req)
		}
	}
	return out
}

// rawByType returns the captured frames whose payload carries tp.
func (s *fakeSender) rawByType(tp wire.RequestType) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for _, f := range s.frames {
		if len(f) < 8 {
			continue
		}
		if t, err := wire.PeekType(f[4:]); err == nil && t == tp {
			out = append(out, f)
		}
	}
	return out
}

func (s *fakeSender) countType(tp wire.RequestType) int {
	n := 0
	for _, r := range s.requests() {
		if r.Type() == tp {
			n++
		}
	}
	return n
}

// rig bundles a started dispatcher with the pool and cache behind it.
type rig struct {
	d       *Dispatcher
	pool    *compute.Pool
	results *cache.ResultCache
}

func newRig(t *testing.T, cfg Config, workers int, users ...identity.User) *rig {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool := compute.NewPool(compute.PoolConfig{Workers: workers, QueueSize: 256}, nil)
	pool.Start(ctx)
	t.Cleanup(func() { pool.Stop(2 * time.Second) })

	results := cache.New(0, nil)
	d := New(cfg, compute.NewExecutor(pool, compute.Config{}, nil), results, identity.NewStore(users), NullMetrics())
	d.Start(ctx)
	t.Cleanup(func() { d.Stop(2 * time.Second) })

	return &rig{d: d, pool: pool, results: results}
}

func testUser(t *testing.T, username, password string) identity.User {
	t.Helper()
	hash, err := identity.HashPasswordWithCost(password, 4)
	require.NoError(t, err)
	return identity.User{Username: username, PasswordHash: hash, Enabled: true}
}

func authorize(t *testing.T, d *Dispatcher, owner, username, password string) *fakeSender {
	t.Helper()
	s := &fakeSender{}
	err := d.Authorize(context.Background(), owner, wire.LoginData{Username: username, Password: password}, s)
	require.NoError(t, err)
	return s
}

func submit(d *Dispatcher, owner string, req wire.Request) {
	d.HandleFrame(owner, wire.EncodePayload(req))
}

// waitForType polls until the sender has captured a frame of type tp.
func waitForType(t *testing.T, s *fakeSender, tp wire.RequestType) wire.Request {
	t.Helper()
	var got wire.Request
	require.Eventually(t, func() bool {
		for _, r := range s.requests() {
			if r.Type() == tp {
				got = r
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "no %s frame arrived", tp)
	return got
}

func waitForInvalid(t *testing.T, s *fakeSender, code wire.ErrorCode) *wire.InvalidRequest {
	t.Helper()
	var got *wire.InvalidRequest
	require.Eventually(t, func() bool {
		for _, r := range s.requests() {
			if inv, ok := r.(*wire.InvalidRequest); ok && inv.Code == code {
				got = inv
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "no InvalidRequest with code %s arrived", code)
	return got
}

// blockWorkers parks every pool worker on a gate so launched chunks queue up
// without running. The returned channel releases them.
func blockWorkers(t *testing.T, pool *compute.Pool) chan struct{} {
	t.Helper()

	release := make(chan struct{})
	var parked sync.WaitGroup
	parked.Add(pool.Workers())
	for i := 0; i < pool.Workers(); i++ {
		ok := pool.Submit(func() {
			parked.Done()
			<-release
		})
		require.True(t, ok, "pool rejected a blocker job")
	}
	parked.Wait()

	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})
	return release
}

// drainTasks waits until the dispatcher has no task in flight.
func drainTasks(t *testing.T, d *Dispatcher) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := d.Snapshot(context.Background())
		return err == nil && len(st.Tasks) == 0
	}, 5*time.Second, 10*time.Millisecond, "tasks did not drain")
}

// ============================================================================
// Authorization Tests
// ============================================================================

func TestAuthorize_Success(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	assert.False(t, s.isClosed())
	st, err := r.d.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Clients)
	assert.Equal(t, []string{"alice"}, st.Usernames)
}

func TestAuthorize_BadPassword(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	err := r.d.Authorize(context.Background(), "127.0.0.1:4001",
		wire.LoginData{Username: "alice", Password: "wrong"}, &fakeSender{})

	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestAuthorize_UnknownUser(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	err := r.d.Authorize(context.Background(), "127.0.0.1:4001",
		wire.LoginData{Username: "mallory", Password: "s3cretpass"}, &fakeSender{})

	require.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestAuthorize_DisabledUser(t *testing.T) {
	t.Parallel()

	u := testUser(t, "carol", "s3cretpass")
	u.Enabled = false
	r := newRig(t, Config{}, 2, u)

	err := r.d.Authorize(context.Background(), "127.0.0.1:4001",
		wire.LoginData{Username: "carol", Password: "s3cretpass"}, &fakeSender{})

	require.ErrorIs(t, err, identity.ErrUserDisabled)
}

func TestAuthorize_DuplicateUsername(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	err := r.d.Authorize(context.Background(), "127.0.0.1:4002",
		wire.LoginData{Username: "alice", Password: "s3cretpass"}, &fakeSender{})

	require.ErrorIs(t, err, ErrUserAlreadyConnected)
}

func TestAuthorize_UsernameFreedAfterDisconnect(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	r.d.Disconnected("127.0.0.1:4001")
	authorize(t, r.d, "127.0.0.1:4002", "alice", "s3cretpass")

	st, err := r.d.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Clients)
}

func TestAuthorize_AllowList(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{
		AllowListEnabled: true,
		AllowedAddresses: []string{"10.0.0.1"},
	}, 2, testUser(t, "alice", "s3cretpass"), testUser(t, "bob", "hunter2222"))

	authorize(t, r.d, "10.0.0.1:5000", "alice", "s3cretpass")

	err := r.d.Authorize(context.Background(), "10.0.0.2:5000",
		wire.LoginData{Username: "bob", Password: "hunter2222"}, &fakeSender{})
	require.ErrorIs(t, err, ErrAddressNotAllowed)

	assert.True(t, r.d.Allowed(context.Background(), "10.0.0.1"))
	assert.False(t, r.d.Allowed(context.Background(), "10.0.0.2"))
}

func TestAllow_AddsAddress(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{AllowListEnabled: true}, 2, testUser(t, "alice", "s3cretpass"))

	require.False(t, r.d.Allowed(context.Background(), "10.9.9.9"))
	require.NoError(t, r.d.Allow(context.Background(), "10.9.9.9"))
	assert.True(t, r.d.Allowed(context.Background(), "10.9.9.9"))
}

func TestDisallow_ClosesConnections(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{
		AllowListEnabled: true,
		AllowedAddresses: []string{"10.0.0.1"},
	}, 2, testUser(t, "alice", "s3cretpass"))

	s := authorize(t, r.d, "10.0.0.1:7001", "alice", "s3cretpass")

	closed, err := r.d.Disallow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.True(t, s.isClosed())

	// The adapter would observe the close and report the disconnect.
	r.d.Disconnected("10.0.0.1:7001")

	err = r.d.Authorize(context.Background(), "10.0.0.1:7002",
		wire.LoginData{Username: "alice", Password: "s3cretpass"}, &fakeSender{})
	require.ErrorIs(t, err, ErrAddressNotAllowed)
}

// ============================================================================
// Frame Validation Tests
// ============================================================================

func TestHandleFrame_ShortPayload(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	r.d.HandleFrame("127.0.0.1:4001", []byte{0x01})

	waitForInvalid(t, s, wire.CodeCorruptedData)
}

func TestHandleFrame_TruncatedTaskPayload(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	// A SortArray payload that promises more elements than it carries.
	full := wire.EncodePayload(&wire.SortArray{Numbers: []int32{1, 2, 3, 4}})
	r.d.HandleFrame("127.0.0.1:4001", full[:len(full)-4])

	waitForInvalid(t, s, wire.CodeCorruptedData)
}

func TestHandleFrame_UnknownDiscriminator(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	payload := make([]byte, 4)
	wire.Order.PutUint32(payload, 99)
	r.d.HandleFrame("127.0.0.1:4001", payload)

	waitForInvalid(t, s, wire.CodeInvalidRequestType)
}

func TestHandleFrame_ProgressRejectedAtServer(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	submit(r.d, "127.0.0.1:4001", &wire.ProgressValue{Value: 5})
	waitForInvalid(t, s, wire.CodeInvalidRequestType)

	submit(r.d, "127.0.0.1:4001", &wire.ProgressRange{Min: 0, Max: 10})
	require.Eventually(t, func() bool {
		return s.countType(wire.TypeInvalidRequest) == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHandleFrame_ErrorEchoRejected(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	submit(r.d, "127.0.0.1:4001", &wire.InvalidRequest{Code: wire.CodeUnspecified, Text: "echo"})

	waitForInvalid(t, s, wire.CodeInvalidRequestType)
}

// ============================================================================
// Task Submission Tests
// ============================================================================

func TestSubmit_SortArrayCompletes(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: []int32{5, 3, 9, 1}})

	res := waitForType(t, s, wire.TypeSortArray).(*wire.SortArray)
	assert.Equal(t, []int32{1, 3, 5, 9}, res.Numbers)

	reqs := s.requests()
	require.GreaterOrEqual(t, len(reqs), 4)
	pr, ok := reqs[0].(*wire.ProgressRange)
	require.True(t, ok, "the first frame must announce the progress range")
	assert.Equal(t, int32(0), pr.Min)
	assert.Equal(t, int32(1), pr.Max)
	pv, ok := reqs[1].(*wire.ProgressValue)
	require.True(t, ok, "the range must be followed by zero progress")
	assert.Equal(t, int32(0), pv.Value)
	assert.Equal(t, wire.TypeSortArray, reqs[len(reqs)-1].Type(),
		"the result must be the final frame")
}

func TestSubmit_EmptyArrayCompletesImmediately(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: nil})

	res := waitForType(t, s, wire.TypeSortArray).(*wire.SortArray)
	assert.Empty(t, res.Numbers)
	drainTasks(t, r.d)
}

func TestSubmit_PrimesComplete(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	submit(r.d, "127.0.0.1:4001", &wire.FindPrimeNumbers{XFrom: 1, XTo: 30})

	res := waitForType(t, s, wire.TypeFindPrimeNumbers).(*wire.FindPrimeNumbers)
	assert.Equal(t, []int32{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}, res.Primes)
}

func TestSubmit_RepeatServedFromCache(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	req := &wire.SortArray{Numbers: []int32{4, 2, 8, 6}}
	submit(r.d, "127.0.0.1:4001", req)
	waitForType(t, s, wire.TypeSortArray)

	submit(r.d, "127.0.0.1:4001", req)
	require.Eventually(t, func() bool {
		return s.countType(wire.TypeSortArray) == 2
	}, 5*time.Second, 10*time.Millisecond)

	stats := r.results.Stats()
	assert.Equal(t, uint64(1), stats.Insertions, "the task must execute only once")
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)

	frames := s.rawByType(wire.TypeSortArray)
	require.Len(t, frames, 2)
	assert.True(t, bytes.Equal(frames[0], frames[1]),
		"the cached reply must be byte-identical to the computed one")
}

func TestSubmit_AlreadyRunningTask(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	release := blockWorkers(t, r.pool)

	numbers := make([]int32, 1000)
	for i := range numbers {
		numbers[i] = int32(len(numbers) - i)
	}
	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: numbers})
	waitForType(t, s, wire.TypeProgressRange)

	submit(r.d, "127.0.0.1:4001", &wire.FindPrimeNumbers{XFrom: 1, XTo: 100})
	inv := waitForInvalid(t, s, wire.CodeAlreadyRunningTask)
	assert.NotEmpty(t, inv.Text)

	close(release)
	res := waitForType(t, s, wire.TypeSortArray).(*wire.SortArray)
	assert.Equal(t, int32(1), res.Numbers[0])
	assert.Zero(t, s.countType(wire.TypeFindPrimeNumbers),
		"the rejected submission must never execute")
}

// ============================================================================
// Cancellation Tests
// ============================================================================

func TestCancel_WithoutTaskAcknowledges(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	submit(r.d, "127.0.0.1:4001", &wire.CancelCurrentTask{})

	waitForType(t, s, wire.TypeCancelCurrentTask)
	assert.Len(t, s.requests(), 1, "an idle cancel produces exactly the acknowledgement")
}

func TestCancel_RunningTaskProducesSingleAck(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	release := blockWorkers(t, r.pool)

	numbers := make([]int32, 1000)
	for i := range numbers {
		numbers[i] = int32(i % 7)
	}
	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: numbers})
	waitForType(t, s, wire.TypeProgressRange)

	submit(r.d, "127.0.0.1:4001", &wire.CancelCurrentTask{})

	// Commands apply in order, so once this snapshot answers, the cancel
	// has been applied. Workers are still parked: no chunk has run yet.
	st, err := r.d.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Tasks, 1)
	require.Equal(t, "cancelling", st.Tasks[0].State)

	close(release)

	waitForType(t, s, wire.TypeCancelCurrentTask)
	drainTasks(t, r.d)

	assert.Equal(t, 1, s.countType(wire.TypeCancelCurrentTask))
	assert.Zero(t, s.countType(wire.TypeSortArray),
		"a cancelled task must not deliver a result")
	assert.Zero(t, s.countType(wire.TypeInvalidRequest))
	assert.Zero(t, r.results.Stats().Insertions,
		"cancelled tasks must not be cached")
}

func TestCancel_SlotFreedAfterCancel(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	release := blockWorkers(t, r.pool)

	numbers := make([]int32, 1000)
	for i := range numbers {
		numbers[i] = int32(i ^ 0x55)
	}
	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: numbers})
	waitForType(t, s, wire.TypeProgressRange)
	submit(r.d, "127.0.0.1:4001", &wire.CancelCurrentTask{})
	st, err := r.d.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, st.Tasks)
	close(release)
	waitForType(t, s, wire.TypeCancelCurrentTask)
	drainTasks(t, r.d)

	// The slot is free again: a fresh submission runs to completion.
	submit(r.d, "127.0.0.1:4001", &wire.FindPrimeNumbers{XFrom: 1, XTo: 10})
	res := waitForType(t, s, wire.TypeFindPrimeNumbers).(*wire.FindPrimeNumbers)
	assert.Equal(t, []int32{2, 3, 5, 7}, res.Primes)
}

func TestDisconnect_CancelsSilently(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")

	release := blockWorkers(t, r.pool)

	numbers := make([]int32, 1000)
	for i := range numbers {
		numbers[i] = int32(-i)
	}
	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: numbers})
	waitForType(t, s, wire.TypeProgressRange)

	r.d.Disconnected("127.0.0.1:4001")

	// Snapshot is a barrier: the disconnect has been applied, the task is
	// cancelling, and no chunk has run yet because the workers are parked.
	st, err := r.d.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, st.Clients)

	close(release)
	drainTasks(t, r.d)

	assert.Zero(t, s.countType(wire.TypeCancelCurrentTask),
		"a disconnect cancel is not acknowledged")
	assert.Zero(t, s.countType(wire.TypeSortArray))
	assert.Zero(t, r.results.Stats().Insertions)
}

// ============================================================================
// Status Tests
// ============================================================================

func TestSnapshot_ReportsClientsAndTasks(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2,
		testUser(t, "alice", "s3cretpass"),
		testUser(t, "bob", "hunter2222"))
	s := authorize(t, r.d, "127.0.0.1:4001", "alice", "s3cretpass")
	authorize(t, r.d, "127.0.0.1:4002", "bob", "hunter2222")

	blockWorkers(t, r.pool)

	numbers := make([]int32, 1000)
	for i := range numbers {
		numbers[i] = int32(i)
	}
	submit(r.d, "127.0.0.1:4001", &wire.SortArray{Numbers: numbers})
	waitForType(t, s, wire.TypeProgressRange)

	st, err := r.d.Snapshot(context.Background())
	require.NoError(t, err)

	assert.False(t, st.StartedAt.IsZero())
	assert.Equal(t, 2, st.Clients)
	assert.Equal(t, []string{"alice", "bob"}, st.Usernames)
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, "SortArray", st.Tasks[0].Kind)
	assert.Equal(t, "alice", st.Tasks[0].Username)
	assert.Equal(t, "127.0.0.1:4001", st.Tasks[0].Owner)
	assert.Equal(t, "running", st.Tasks[0].State)
	assert.Equal(t, 10, st.Tasks[0].Chunks)
	assert.NotEmpty(t, st.Tasks[0].ID)
	assert.Equal(t, cache.DefaultMaxCost, st.Cache.MaxCost)
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

func TestStop_RefusesNewCommands(t *testing.T) {
	t.Parallel()

	r := newRig(t, Config{}, 2, testUser(t, "alice", "s3cretpass"))
	r.d.Stop(2 * time.Second)

	err := r.d.Authorize(context.Background(), "127.0.0.1:4001",
		wire.LoginData{Username: "alice", Password: "s3cretpass"}, &fakeSender{})
	require.ErrorIs(t, err, ErrStopped)

	_, err = r.d.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrStopped)
}
