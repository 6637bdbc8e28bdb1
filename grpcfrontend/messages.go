// Package grpcfrontend carries the message vocabulary shared between the
// orchestrator and the optional gRPC frontend it may spawn (grpcd): the
// frontend daemon's own implementation is out of scope (it is launched as a
// child process like any other), but the orchestrator still needs the
// message shapes and a thin client for its own status subcommand.
package grpcfrontend

// NodeInfo mirrors bus.NodeInfoResp over the wire.
type NodeInfo struct {
	UptimeSeconds int64
	SinceUnix     int64
	Peers         []string
	Swaps         []string
	Offers        []string
	Listen        []string
}

// SwapProgress mirrors bus.SwapProgressResp over the wire.
type SwapProgress struct {
	Events []ProgressEvent
}

// ProgressEvent is the wire projection of bus.ProgressEvent.
type ProgressEvent struct {
	Kind    string
	Text    string
	Outcome string
	Code    uint16
	Info    string
}

// Empty is the request shape for RPCs that take no arguments.
type Empty struct{}

// SwapIdRequest carries a hex-encoded swap id.
type SwapIdRequest struct {
	SwapId string
}
