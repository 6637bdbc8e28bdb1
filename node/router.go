package node

import (
	"fmt"

	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var routerLogger = swlog.NewModuleLogger(swlog.Router)

// correlateTrade implements the priority-ordered rules for matching an
// inbound request to a trade machine. matched is false when the request
// cannot be correlated to any trade machine and should be dropped with a
// warning. hasID is true when an existing machine was found (its storage id
// is returned so the caller can remove-then-reinsert it), false when a
// fresh Start* machine was built.
func (rt *Runtime) correlateTrade(ev Event) (m TradeMachine, id uint64, hasID bool, matched bool) {
	switch req := ev.Request.(type) {
	case bus.RestoreCheckpoint:
		return StartRestore{}, 0, false, true

	case bus.MakeOffer:
		return StartMaker{}, 0, false, true

	case bus.TakeOffer:
		return StartTaker{}, 0, false, true

	case bus.TakerCommit:
		return rt.findTrade(func(tm TradeMachine) bool {
			o, ok := tm.OpenOffer()
			return ok && o.Id() == req.Offer.Id()
		})

	case bus.RevokeOffer:
		return rt.findTrade(func(tm TradeMachine) bool {
			o, ok := tm.OpenOffer()
			return ok && o.Id() == req.Offer.Id()
		})

	case bus.LaunchSwap:
		return rt.findTrade(func(tm TradeMachine) bool {
			o, ok := tm.ConsumedOffer()
			return ok && o.Id() == req.Offer.Id()
		})

	case bus.PeerdUnreachable, bus.FundingInfo, bus.FundingCanceled, bus.FundingCompleted, bus.SwapOutcome:
		if ev.Source.Kind != bus.KindSwap {
			return nil, 0, false, false
		}
		return rt.findTrade(func(tm TradeMachine) bool {
			id, ok := tm.SwapId()
			return ok && id == ev.Source.Swap
		})

	default:
		return nil, 0, false, false
	}
}

func (rt *Runtime) findTrade(pred func(TradeMachine) bool) (TradeMachine, uint64, bool, bool) {
	for id, m := range rt.trades {
		if pred(m) {
			return m, id, true, true
		}
	}
	return nil, 0, false, false
}

// RouteTrade correlates ev to a trade machine (new or existing), removes it
// from the collection, advances it, and reinserts it iff it did not
// terminate. A router miss is logged and dropped, never reported as an
// error to the client.
func (rt *Runtime) RouteTrade(ev Event) {
	m, id, hasID, matched := rt.correlateTrade(ev)
	if !matched {
		routerLogger.Warnw("no trade machine matched request", "request", fmt.Sprintf("%T", ev.Request), "source", ev.Source)
		return
	}
	if hasID {
		delete(rt.trades, id)
	}

	before := m.String()
	next, ok := m.Next(rt, ev)
	if !ok {
		tradeLogger.Infow("state machine ended", "state", before)
		return
	}

	after := next.String()
	if after == before {
		tradeLogger.Debugw("self-transition", "state", before)
	} else {
		tradeLogger.Infow("state transition", "from", before, "to", after)
	}

	if hasID {
		rt.trades[id] = next
	} else {
		rt.addTrade(next)
	}
}

// correlateSyncer mirrors correlateTrade for the syncer-task family.
func (rt *Runtime) correlateSyncer(ev Event) (m SyncerMachine, taskID bus.TaskId, hasID bool, matched bool) {
	switch req := ev.Request.(type) {
	case bus.SweepAddress:
		return SyncerStart{}, 0, false, true

	case bus.SyncerEvent:
		if req.Kind != bus.SyncerEventSweepSuccess {
			return nil, 0, false, false
		}
		existing, ok := rt.syncers[req.TaskId]
		if !ok {
			return nil, 0, false, false
		}
		return existing, req.TaskId, true, true

	default:
		return nil, 0, false, false
	}
}

// RouteSyncer mirrors RouteTrade for the syncer-task family.
func (rt *Runtime) RouteSyncer(ev Event) {
	m, id, hasID, matched := rt.correlateSyncer(ev)
	if !matched {
		routerLogger.Warnw("no syncer machine matched request", "request", fmt.Sprintf("%T", ev.Request), "source", ev.Source)
		return
	}
	if hasID {
		delete(rt.syncers, id)
	}

	before := m.String()
	next, ok := m.Next(rt, ev)
	if !ok {
		syncerLogger.Infow("state machine ended", "state", before)
		return
	}

	after := next.String()
	if after == before {
		syncerLogger.Debugw("self-transition", "state", before)
	} else {
		syncerLogger.Infow("state transition", "from", before, "to", after)
	}

	tid, hasTid := next.TaskId()
	if !hasTid {
		syncerLogger.Errorw("syncer machine returned without a task id, dropping", "state", after)
		return
	}
	rt.syncers[tid] = next
}
