package bus

import "github.com/pkg/errors"

// Name identifies one of the two logical buses the orchestrator listens on.
type Name uint8

const (
	Msg Name = iota
	Ctl
)

func (n Name) String() string {
	if n == Msg {
		return "Msg"
	}
	return "Ctl"
}

// ErrNotSupported is returned for any bus name other than Msg or Ctl.
var ErrNotSupported = errors.New("bus: not supported")

// Bus is the transport the orchestrator sends outbound requests over. The
// concrete wire implementation (unix socket framing, ZMQ, whatever the
// deployment picks) lives outside this module; only the interface the core
// consumes is specified here.
type Bus interface {
	// Send dispatches a message to dest on the given bus. payload is either
	// a Request or a Response — the bus does not distinguish direction, only
	// the two parties at either end do. Send never blocks waiting for a
	// reply — a reply, if any, arrives later as an ordinary inbound event on
	// a future dispatch turn.
	Send(name Name, dest ServiceId, payload interface{}) error
}

// SendError wraps a transport failure observed while sending to dest. The
// orchestrator treats every SendError as "dest is gone": a subscriber drop,
// a service presumed already terminated, never a crash.
type SendError struct {
	Dest ServiceId
	Err  error
}

func (e *SendError) Error() string {
	return "bus: send to " + e.Dest.String() + " failed: " + e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }
