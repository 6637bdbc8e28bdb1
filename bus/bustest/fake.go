// Package bustest provides an in-process fake bus.Bus for tests: it never
// touches a real socket, only records every Send call so a test can assert
// on what the orchestrator tried to emit.
package bustest

import (
	"sync"

	"github.com/swapd-project/swapd/bus"
)

// Sent is one recorded Send call.
type Sent struct {
	Name    bus.Name
	Dest    bus.ServiceId
	Payload interface{}
}

// FakeBus records every Send call and, if Fail is set for a destination,
// returns an error instead (simulating the destination being unreachable).
type FakeBus struct {
	mu   sync.Mutex
	sent []Sent
	fail map[bus.ServiceId]bool
}

// New returns an empty FakeBus.
func New() *FakeBus {
	return &FakeBus{fail: make(map[bus.ServiceId]bool)}
}

// FailSendsTo makes every subsequent Send to dest return an error.
func (f *FakeBus) FailSendsTo(dest bus.ServiceId) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[dest] = true
}

func (f *FakeBus) Send(name bus.Name, dest bus.ServiceId, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[dest] {
		return &bus.SendError{Dest: dest, Err: errUnreachable}
	}
	f.sent = append(f.sent, Sent{Name: name, Dest: dest, Payload: payload})
	return nil
}

// All returns every message sent so far, in order.
func (f *FakeBus) All() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}

// To returns every message sent to dest, in order.
func (f *FakeBus) To(dest bus.ServiceId) []Sent {
	var out []Sent
	for _, s := range f.All() {
		if s.Dest == dest {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recently sent message, and false if nothing was
// ever sent.
func (f *FakeBus) Last() (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return Sent{}, false
	}
	return f.sent[len(f.sent)-1], true
}

var errUnreachable = fakeError("bustest: destination unreachable")

type fakeError string

func (e fakeError) Error() string { return string(e) }
