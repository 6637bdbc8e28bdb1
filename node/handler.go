package node

import (
	"fmt"
	"time"

	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var handlerLogger = swlog.NewModuleLogger(swlog.Orchestrator)

// Handle is the single entrypoint the bus transport calls for every inbound
// message. Any bus other than Msg/Ctl is rejected. Hello is classified
// specially; every other request is handed to the router. Transport-level
// Send errors observed while handling are logged and swallowed —
// propagating them would crash the daemon.
func (rt *Runtime) Handle(b bus.Bus, name bus.Name, source bus.ServiceId, req bus.Request) error {
	if name != bus.Msg && name != bus.Ctl {
		return bus.ErrNotSupported
	}

	if _, ok := req.(bus.Hello); ok {
		if name == bus.Msg {
			// Msg-bus Hello only lets the transport learn the peer
			// identity; no registry action.
			return nil
		}
		rt.Registry.OnHello(b, source)
		rt.broadcastHello(b, source)
		return nil
	}

	rt.dispatch(b, source, req)
	return nil
}

// broadcastHello replays a Hello to every live trade and syncer machine, so
// a machine waiting on any service can advance. Collections are drained
// into a local slice before iterating so a transition that itself enqueues
// a new machine cannot alias the collection being walked.
func (rt *Runtime) broadcastHello(b bus.Bus, source bus.ServiceId) {
	ev := Event{Bus: b, Source: source, Request: bus.Hello{}}

	tradeIDs := make([]uint64, 0, len(rt.trades))
	for id := range rt.trades {
		tradeIDs = append(tradeIDs, id)
	}
	for _, id := range tradeIDs {
		m, ok := rt.trades[id]
		if !ok {
			continue // already consumed by an earlier replay this turn
		}
		delete(rt.trades, id)
		before := m.String()
		next, ok := m.Next(rt, ev)
		if !ok {
			tradeLogger.Infow("state machine ended", "state", before)
			continue
		}
		if next.String() != before {
			tradeLogger.Infow("state transition", "from", before, "to", next.String())
		} else {
			tradeLogger.Debugw("self-transition", "state", before)
		}
		rt.trades[id] = next
	}

	taskIDs := make([]bus.TaskId, 0, len(rt.syncers))
	for id := range rt.syncers {
		taskIDs = append(taskIDs, id)
	}
	for _, id := range taskIDs {
		m, ok := rt.syncers[id]
		if !ok {
			continue
		}
		delete(rt.syncers, id)
		before := m.String()
		next, ok := m.Next(rt, ev)
		if !ok {
			syncerLogger.Infow("state machine ended", "state", before)
			continue
		}
		tid, hasTid := next.TaskId()
		if !hasTid {
			syncerLogger.Errorw("syncer machine returned without a task id, dropping", "state", next.String())
			continue
		}
		rt.syncers[tid] = next
	}
}

func (rt *Runtime) dispatch(b bus.Bus, source bus.ServiceId, req bus.Request) {
	ev := Event{Bus: b, Source: source, Request: req}

	switch req.(type) {
	case bus.RestoreCheckpoint, bus.MakeOffer, bus.TakeOffer, bus.TakerCommit, bus.RevokeOffer, bus.LaunchSwap,
		bus.PeerdUnreachable, bus.FundingInfo, bus.FundingCanceled, bus.FundingCompleted, bus.SwapOutcome:
		rt.RouteTrade(ev)

	case bus.SweepAddress, bus.SyncerEvent:
		rt.RouteSyncer(ev)

	case bus.ProgressReport:
		rt.handleProgressReport(ev)
	case bus.ReadProgress:
		rt.handleReadProgress(ev)
	case bus.SubscribeProgress:
		rt.handleSubscribeProgress(ev)
	case bus.UnsubscribeProgress:
		rt.handleUnsubscribeProgress(ev)

	case bus.Keys:
		rt.handleKeys(ev)
	case bus.GetInfo:
		rt.handleGetInfo(ev)
	case bus.ListPeers:
		rt.handleListPeers(ev)
	case bus.ListSwaps:
		rt.handleListSwaps(ev)
	case bus.ListOffers:
		rt.handleListOffers(ev)
	case bus.ListListens:
		rt.handleListListens(ev)
	case bus.CheckpointList:
		rt.forward(b, bus.Database, req, source)

	case bus.PeerdTerminated:
		CleanUpPeer(rt, b, source)

	case bus.NeedsFunding:
		handlerLogger.Warnw("NeedsFunding has no local answer, dropping", "source", source)

	default:
		handlerLogger.Warnw("no handler matched request", "request", fmt.Sprintf("%T", req), "source", source)
	}
}

// forward relays req to dest unmodified, e.g. CheckpointList and any
// ListOffers selector the router doesn't resolve locally: the database
// service's schema for these is out of scope here.
func (rt *Runtime) forward(b bus.Bus, dest bus.ServiceId, req bus.Request, replyTo bus.ServiceId) {
	if err := b.Send(bus.Ctl, dest, req); err != nil {
		handlerLogger.Errorw("failed to forward request", "dest", dest, "err", err)
		replyFailure(b, replyTo, bus.FailureUnknown, "failed to reach "+dest.String())
	}
}

func (rt *Runtime) handleKeys(ev Event) {
	req := ev.Request.(bus.Keys)
	rt.Registry.SetKeys(NodeKeys{Secret: req.NodeSecretKey, Public: req.NodePublicKey})
}

func (rt *Runtime) handleGetInfo(ev Event) {
	if err := rt.Registry.ServicesReady(); err != nil {
		replyFailure(ev.Bus, ev.Source, bus.FailureUnknown, err.Error())
		return
	}

	var swaps []bus.SwapId
	for _, m := range rt.trades {
		if id, ok := m.SwapId(); ok {
			swaps = append(swaps, id)
		}
	}
	offers := make([]bus.OfferId, 0, len(rt.publicOffers))
	for id := range rt.publicOffers {
		offers = append(offers, id)
	}

	resp := bus.NodeInfoResp{
		Uptime: time.Since(rt.startedAt),
		Since:  rt.startedAt,
		Peers:  rt.Registry.Registered(bus.KindPeer),
		Swaps:  swaps,
		Offers: offers,
		Listen: rt.Listens(),
	}
	if err := ev.Bus.Send(bus.Ctl, ev.Source, resp); err != nil {
		handlerLogger.Errorw("failed to reply to GetInfo", "err", err)
	}
}

func (rt *Runtime) handleListPeers(ev Event) {
	resp := bus.PeerListResp{Peers: rt.Registry.Registered(bus.KindPeer)}
	if err := ev.Bus.Send(bus.Ctl, ev.Source, resp); err != nil {
		handlerLogger.Errorw("failed to reply to ListPeers", "err", err)
	}
}

func (rt *Runtime) handleListSwaps(ev Event) {
	var swaps []bus.SwapId
	for _, m := range rt.trades {
		if id, ok := m.SwapId(); ok {
			swaps = append(swaps, id)
		}
	}
	if err := ev.Bus.Send(bus.Ctl, ev.Source, bus.SwapListResp{Swaps: swaps}); err != nil {
		handlerLogger.Errorw("failed to reply to ListSwaps", "err", err)
	}
}

func (rt *Runtime) handleListOffers(ev Event) {
	req := ev.Request.(bus.ListOffers)
	switch req.Selector {
	case bus.SelectorOpen:
		offers := make([]bus.PublicOffer, 0, len(rt.publicOffers))
		for _, o := range rt.publicOffers {
			offers = append(offers, o)
		}
		if err := ev.Bus.Send(bus.Ctl, ev.Source, bus.OfferListResp{Offers: offers}); err != nil {
			handlerLogger.Errorw("failed to reply to ListOffers(Open)", "err", err)
		}

	case bus.SelectorInProgress:
		var offers []bus.PublicOffer
		for _, m := range rt.trades {
			if o, ok := m.ConsumedOffer(); ok {
				offers = append(offers, o)
			}
		}
		if err := ev.Bus.Send(bus.Ctl, ev.Source, bus.OfferListResp{Offers: offers}); err != nil {
			handlerLogger.Errorw("failed to reply to ListOffers(InProgress)", "err", err)
		}

	default:
		// Ended / OutOfSync: the database owns this schema.
		rt.forward(ev.Bus, bus.Database, req, ev.Source)
	}
}

func (rt *Runtime) handleListListens(ev Event) {
	if err := ev.Bus.Send(bus.Ctl, ev.Source, bus.ListenListResp{Listens: rt.Listens()}); err != nil {
		handlerLogger.Errorw("failed to reply to ListListens", "err", err)
	}
}

func (rt *Runtime) handleProgressReport(ev Event) {
	req := ev.Request.(bus.ProgressReport)
	if ev.Source.Kind != bus.KindSwap {
		handlerLogger.Warnw("ProgressReport from a non-swap source, dropping", "source", ev.Source)
		return
	}
	rt.Progress.Append(ev.Bus, ev.Source.Swap, req.Event)
}

func (rt *Runtime) handleReadProgress(ev Event) {
	req := ev.Request.(bus.ReadProgress)
	resp, err := rt.Progress.Read(req.SwapId, rt.swapIsRunning(req.SwapId))
	if err != nil {
		replyFailure(ev.Bus, ev.Source, bus.FailureUnknown, err.Error())
		return
	}
	if err := ev.Bus.Send(bus.Ctl, ev.Source, resp); err != nil {
		handlerLogger.Errorw("failed to reply to ReadProgress", "err", err)
	}
}

func (rt *Runtime) handleSubscribeProgress(ev Event) {
	req := ev.Request.(bus.SubscribeProgress)
	if err := rt.Progress.Subscribe(ev.Bus, req.SwapId, ev.Source, rt.swapIsRunning(req.SwapId)); err != nil {
		replyFailure(ev.Bus, ev.Source, bus.FailureUnknown, err.Error())
	}
}

func (rt *Runtime) handleUnsubscribeProgress(ev Event) {
	req := ev.Request.(bus.UnsubscribeProgress)
	rt.Progress.Unsubscribe(req.SwapId, ev.Source)
}

func (rt *Runtime) swapIsRunning(id bus.SwapId) bool {
	for _, m := range rt.trades {
		if sid, ok := m.SwapId(); ok && sid == id {
			return true
		}
	}
	return false
}
