package application

import (
	"context"
	"errors"
	"sync"

	"github.com/oksasatya/go-rbac-auth/internal/audit"
)

// plainHasher avoids bcrypt cost in tests that do not exercise hashing.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(digest, plain string) bool  { return digest == "hashed:"+plain }

type captureAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAudit) Record(_ context.Context, e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureAudit) actions() []audit.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.Action, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

// flakyHasher fails Hash the first failures times, then behaves like plainHasher.
type flakyHasher struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (h *flakyHasher) Hash(plain string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.failures {
		return "", errors.New("entropy exhausted")
	}
	return "hashed:" + plain, nil
}

func (h *flakyHasher) Verify(digest, plain string) bool { return digest == "hashed:"+plain }
