package bus

import "time"

// Response is the marker interface implemented by every outbound bus
// message the orchestrator may produce.
type Response interface{ isResponse() }

type (
	NodeInfoResp struct {
		Uptime time.Duration
		Since  time.Time
		Peers  []ServiceId
		Swaps  []SwapId
		Offers []OfferId
		Listen []string
	}

	PeerListResp struct {
		Peers []ServiceId
	}

	SwapListResp struct {
		Swaps []SwapId
	}

	OfferListResp struct {
		Offers []PublicOffer
	}

	ListenListResp struct {
		Listens []string
	}

	CheckpointListResp struct {
		SwapIds []SwapId
	}

	SwapProgressResp struct {
		Events []ProgressEvent
	}

	// StringResp carries a human-readable payload, e.g. the funding-info
	// summary text.
	StringResp struct {
		Text string
	}

	FailureResp struct {
		Code FailureCode
		Info string
	}

	// ProgressPush is sent to every subscriber of a swap each time a new
	// ProgressEvent is appended, and replayed in order for catch-up on
	// subscribe.
	ProgressPush struct {
		SwapId SwapId
		Event  ProgressEvent
	}
)

func (NodeInfoResp) isResponse()       {}
func (PeerListResp) isResponse()       {}
func (SwapListResp) isResponse()       {}
func (OfferListResp) isResponse()      {}
func (ListenListResp) isResponse()     {}
func (CheckpointListResp) isResponse() {}
func (SwapProgressResp) isResponse()   {}
func (StringResp) isResponse()         {}
func (FailureResp) isResponse()        {}
func (ProgressPush) isResponse()       {}

// NewFailure builds a FailureResp, the standard reply shape for every
// error path a request handler can take.
func NewFailure(code FailureCode, info string) FailureResp {
	return FailureResp{Code: code, Info: info}
}
