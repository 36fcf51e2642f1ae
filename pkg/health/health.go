// Package health runs startup checks before the application accepts input.
//
// Each registered check runs in its own goroutine. A check is retried up to
// its attempt budget, with a fixed pause between attempts, so a database that
// is still starting does not fail the whole run. Run waits for every check
// and reports all failures, not just the first one.
package health

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// check holds the configuration for a single registered check.
type check struct {
	name     string
	timeout  time.Duration
	attempts int
	fn       CheckFunc
}

// attempt runs fn once under the per-attempt timeout.
func (c *check) attempt(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.fn(ctx)
}

// run retries the check until it passes, the attempts are used up, or ctx
// is done. It returns the last error.
func (c *check) run(ctx context.Context, pause time.Duration) error {
	var err error
	for i := 0; i < c.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pause):
			}
		}
		if err = c.attempt(ctx); err == nil {
			return nil
		}
	}
	return err
}

// Checks is a set of named startup checks.
type Checks struct {
	mu     sync.Mutex
	checks []*check
	pause  time.Duration
}

// New creates an empty set. pause is the delay between attempts of a
// failing check.
func New(pause time.Duration) *Checks {
	return &Checks{pause: pause}
}

// Add registers a check that must pass within attempts tries. attempts
// below one count as one.
func (h *Checks) Add(name string, timeout time.Duration, attempts int, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if attempts < 1 {
		attempts = 1
	}
	h.checks = append(h.checks, &check{
		name:     name,
		timeout:  timeout,
		attempts: attempts,
		fn:       fn,
	})
}

// Report maps a failing check name to its last error.
type Report map[string]error

// Err returns nil when every check passed, or an error listing the failures
// in name order.
func (r Report) Err() error {
	if len(r) == 0 {
		return nil
	}
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + r[name].Error()
	}
	return errors.Errorf("health checks failed: %s", strings.Join(parts, "; "))
}

// Run executes every registered check concurrently and waits for all of them.
func (h *Checks) Run(ctx context.Context) Report {
	h.mu.Lock()
	checks := make([]*check, len(h.checks))
	copy(checks, h.checks)
	h.mu.Unlock()

	var (
		mu     sync.Mutex
		report = Report{}
	)
	// Checks never return an error to the group, so one failure does not
	// cancel the others.
	var g errgroup.Group
	for _, c := range checks {
		g.Go(func() error {
			if err := c.run(ctx, h.pause); err != nil {
				mu.Lock()
				report[c.name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}
