package dispatch

import (
	"context"
	"sort"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/cache"
)

// Status is a consistent view of the dispatcher's state, taken on the
// scheduler goroutine. The ops API renders it under GET /status.
type Status struct {
	// StartedAt is when the dispatcher began applying commands.
	StartedAt time.Time

	// Clients counts the authorized connections.
	Clients int

	// Usernames lists the logged-in users in sorted order.
	Usernames []string

	// Tasks lists the in-flight tasks.
	Tasks []TaskInfo

	// Cache reports result cache occupancy and traffic.
	Cache cache.Stats
}

// TaskInfo describes one in-flight task.
type TaskInfo struct {
	ID       string
	Kind     string
	Username string
	Owner    string
	State    string
	Chunks   int
}

// Snapshot returns the dispatcher's current status.
func (d *Dispatcher) Snapshot(ctx context.Context) (Status, error) {
	var st Status
	if err := d.call(ctx, func() { st = d.snapshot() }); err != nil {
		return Status{}, err
	}
	return st, nil
}

func (d *Dispatcher) snapshot() Status {
	st := Status{
		StartedAt: d.startedAt,
		Clients:   len(d.clients),
		Cache:     d.results.Stats(),
	}

	for name := range d.usernames {
		st.Usernames = append(st.Usernames, name)
	}
	sort.Strings(st.Usernames)

	for _, e := range d.tasks {
		st.Tasks = append(st.Tasks, TaskInfo{
			ID:       e.task.ID().String(),
			Kind:     e.task.Kind().String(),
			Username: e.username,
			Owner:    e.owner,
			State:    e.task.State().String(),
			Chunks:   e.task.Chunks(),
		})
	}
	sort.Slice(st.Tasks, func(i, j int) bool {
		return st.Tasks[i].Username < st.Tasks[j].Username
	})

	return st
}
