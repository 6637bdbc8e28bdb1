package node

import (
	"encoding/hex"
	"fmt"
	"net"

	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var tradeLogger = swlog.NewModuleLogger(swlog.TradeFSM)

// Event carries everything a trade or syncer machine's Next needs: the bus
// handle to emit sends on, the originating source, and the request that
// triggered this transition.
type Event struct {
	Bus     bus.Bus
	Source  bus.ServiceId
	Request bus.Request
}

// TradeMachine is the tagged-variant interface every trade state implements.
// Next returns (nil, false) when the machine has terminated; otherwise it
// returns the (possibly identical) next state and true.
type TradeMachine interface {
	String() string
	OpenOffer() (bus.PublicOffer, bool)
	ConsumedOffer() (bus.PublicOffer, bool)
	SwapId() (bus.SwapId, bool)
	Syncers() []bus.ServiceId
	Connection() (bus.ServiceId, bool)
	Next(rt *Runtime, ev Event) (TradeMachine, bool)
}

// baseTrade supplies the zero-value projections; variants embed it and
// override only the ones that apply to them.
type baseTrade struct{}

func (baseTrade) OpenOffer() (bus.PublicOffer, bool)     { return bus.PublicOffer{}, false }
func (baseTrade) ConsumedOffer() (bus.PublicOffer, bool) { return bus.PublicOffer{}, false }
func (baseTrade) SwapId() (bus.SwapId, bool)             { return bus.SwapId{}, false }
func (baseTrade) Syncers() []bus.ServiceId               { return nil }
func (baseTrade) Connection() (bus.ServiceId, bool)      { return bus.ServiceId{}, false }

// ensureSyncers launches a syncer for each spec not already spawning or
// registered, and returns the resulting ServiceIds.
func ensureSyncers(rt *Runtime, specs []bus.SyncerSpec) []bus.ServiceId {
	out := make([]bus.ServiceId, 0, len(specs))
	for _, spec := range specs {
		id := bus.Syncer(spec.Blockchain, spec.Network)
		out = append(out, id)
		if rt.Registry.IsRegistered(id) || rt.Registry.IsSpawning(id) {
			continue
		}
		var err error
		switch spec.Blockchain {
		case "bitcoin":
			_, err = rt.Launcher.SyncerdBitcoin(spec.Network, rt.Config.BitcoinElectrum[spec.Network])
		case "monero":
			_, err = rt.Launcher.SyncerdMonero(rt.Config.MoneroSyncer[spec.Network])
		default:
			tradeLogger.Errorw("unknown blockchain in syncer spec", "blockchain", spec.Blockchain)
			continue
		}
		if err != nil {
			tradeLogger.Errorw("failed to launch syncer", "blockchain", spec.Blockchain, "network", spec.Network, "err", err)
			continue
		}
		rt.Registry.MarkSpawning(id)
	}
	return out
}

func replyFailure(b bus.Bus, dest bus.ServiceId, code bus.FailureCode, info string) {
	if err := b.Send(bus.Ctl, dest, bus.NewFailure(code, info)); err != nil {
		tradeLogger.Errorw("failed to send failure reply", "dest", dest, "err", err)
	}
}

// checkPrerequisites reports a Failure and returns false if the node isn't
// ready to start a new trade because a prerequisite service hasn't
// registered yet.
func checkPrerequisites(rt *Runtime, b bus.Bus, source bus.ServiceId) bool {
	if err := rt.Registry.ServicesReady(); err != nil {
		replyFailure(b, source, bus.FailureUnknown, err.Error())
		return false
	}
	if _, err := rt.Registry.PeerKeysReady(); err != nil {
		replyFailure(b, source, bus.FailureUnknown, err.Error())
		return false
	}
	return true
}

// ---- StartMaker ----

type StartMaker struct{ baseTrade }

func (StartMaker) String() string { return "StartMaker" }

func (s StartMaker) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	req, ok := ev.Request.(bus.MakeOffer)
	if !ok {
		return s, true
	}
	if !checkPrerequisites(rt, ev.Bus, ev.Source) {
		return nil, false
	}

	syncerIds := ensureSyncers(rt, req.Syncers)

	if !rt.isListening(req.ListenAddr) {
		ip, port, err := net.SplitHostPort(req.ListenAddr)
		if err != nil {
			replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "invalid listen address "+req.ListenAddr)
			return nil, false
		}
		keys, _ := rt.Registry.PeerKeysReady()
		if _, err := rt.Launcher.PeerdListen(ip, port, hexKey(keys.Secret), rt.Registry.walletToken); err != nil {
			tradeLogger.Errorw("failed to launch listening peerd", "addr", req.ListenAddr, "err", err)
			replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "failed to start listening")
			return nil, false
		}
		rt.Registry.MarkSpawning(bus.Peer(req.ListenAddr))
		rt.markListening(req.ListenAddr)
	}

	rt.registerOffer(req.Offer)

	return &MakerAwaitingTakerCommit{
		Offer:     req.Offer,
		SyncerIds: syncerIds,
	}, true
}

// ---- MakerAwaitingTakerCommit ----

type MakerAwaitingTakerCommit struct {
	baseTrade
	Offer     bus.PublicOffer
	SyncerIds []bus.ServiceId
	Committed bool
	Peer      bus.ServiceId
}

func (m *MakerAwaitingTakerCommit) Syncers() []bus.ServiceId { return m.SyncerIds }

func (m *MakerAwaitingTakerCommit) String() string {
	return fmt.Sprintf("MakerAwaitingTakerCommit{offer=%s,committed=%v}", m.Offer.Id(), m.Committed)
}

func (m *MakerAwaitingTakerCommit) OpenOffer() (bus.PublicOffer, bool) {
	if m.Committed {
		return bus.PublicOffer{}, false
	}
	return m.Offer, true
}

func (m *MakerAwaitingTakerCommit) ConsumedOffer() (bus.PublicOffer, bool) {
	if !m.Committed {
		return bus.PublicOffer{}, false
	}
	return m.Offer, true
}

func (m *MakerAwaitingTakerCommit) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	switch req := ev.Request.(type) {
	case bus.TakerCommit:
		if req.Offer.Id() != m.Offer.Id() || m.Committed {
			return m, true
		}
		m.Committed = true
		m.Peer = ev.Source
		rt.unregisterOffer(m.Offer.Id())
		return m, true

	case bus.RevokeOffer:
		if req.Offer.Id() != m.Offer.Id() {
			return m, true
		}
		rt.unregisterOffer(m.Offer.Id())
		return nil, false

	case bus.LaunchSwap:
		if req.Offer.Id() != m.Offer.Id() || !m.Committed {
			return m, true
		}
		swapID := bus.NewSwapId()
		if _, err := rt.Launcher.Swapd(swapID.String(), m.Offer.Raw(), "maker"); err != nil {
			tradeLogger.Errorw("failed to launch swapd", "swap", swapID, "err", err)
			replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "failed to launch swapd")
			return nil, false
		}
		rt.unregisterOffer(m.Offer.Id())
		rt.Stats.RecordInitialized()
		return &SwapRunning{
			SwapIdV:  swapID,
			Offer:     m.Offer,
			Peer:      m.Peer,
			SyncerIds: m.SyncerIds,
			Awaiting:  make(map[string]bool),
		}, true

	default:
		return m, true
	}
}

// ---- StartTaker ----

type StartTaker struct{ baseTrade }

func (StartTaker) String() string { return "StartTaker" }

func (s StartTaker) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	req, ok := ev.Request.(bus.TakeOffer)
	if !ok {
		return s, true
	}
	if !checkPrerequisites(rt, ev.Bus, ev.Source) {
		return nil, false
	}

	peerID := bus.Peer(req.NodeAddr)
	if rt.Registry.IsRegistered(peerID) || rt.Registry.IsSpawning(peerID) {
		replyFailure(ev.Bus, ev.Source, bus.FailureUnknown, "already connected to "+req.NodeAddr)
		return nil, false
	}

	syncerIds := ensureSyncers(rt, req.Syncers)

	keys, _ := rt.Registry.PeerKeysReady()
	if _, err := rt.Launcher.PeerdConnect(req.NodeAddr, hexKey(keys.Secret), rt.Registry.walletToken); err != nil {
		tradeLogger.Errorw("failed to launch connecting peerd", "addr", req.NodeAddr, "err", err)
		replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "failed to connect")
		return nil, false
	}
	rt.Registry.MarkSpawning(peerID)

	return &TakerConnect{
		Offer:     req.Offer,
		Peer:      peerID,
		SyncerIds: syncerIds,
	}, true
}

// ---- TakerConnect ----

type TakerConnect struct {
	baseTrade
	Offer     bus.PublicOffer
	Peer      bus.ServiceId
	SyncerIds []bus.ServiceId
	Committed bool
}

func (t *TakerConnect) Syncers() []bus.ServiceId { return t.SyncerIds }

func (t *TakerConnect) String() string {
	return fmt.Sprintf("TakerConnect{offer=%s,peer=%s,committed=%v}", t.Offer.Id(), t.Peer, t.Committed)
}

func (t *TakerConnect) ConsumedOffer() (bus.PublicOffer, bool) {
	if !t.Committed {
		return bus.PublicOffer{}, false
	}
	return t.Offer, true
}

func (t *TakerConnect) Connection() (bus.ServiceId, bool) { return t.Peer, true }

func (t *TakerConnect) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	switch req := ev.Request.(type) {
	case bus.Hello:
		if ev.Source != t.Peer || t.Committed {
			return t, true
		}
		if err := ev.Bus.Send(bus.Msg, t.Peer, bus.TakerCommit{Offer: t.Offer}); err != nil {
			tradeLogger.Errorw("failed to send TakerCommit", "peer", t.Peer, "err", err)
			return t, true
		}
		t.Committed = true
		return t, true

	case bus.LaunchSwap:
		if req.Offer.Id() != t.Offer.Id() || !t.Committed {
			return t, true
		}
		swapID := bus.NewSwapId()
		if _, err := rt.Launcher.Swapd(swapID.String(), t.Offer.Raw(), "taker"); err != nil {
			tradeLogger.Errorw("failed to launch swapd", "swap", swapID, "err", err)
			replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "failed to launch swapd")
			return nil, false
		}
		rt.Stats.RecordInitialized()
		return &SwapRunning{
			SwapIdV:   swapID,
			Offer:     t.Offer,
			Peer:      t.Peer,
			SyncerIds: t.SyncerIds,
			Awaiting:  make(map[string]bool),
		}, true

	default:
		return t, true
	}
}

// ---- SwapRunning ----

type SwapRunning struct {
	baseTrade
	SwapIdV   bus.SwapId
	Offer     bus.PublicOffer
	Peer      bus.ServiceId
	SyncerIds []bus.ServiceId
	Awaiting  map[string]bool
}

func (s *SwapRunning) String() string {
	return fmt.Sprintf("SwapRunning{swap=%s,peer=%s}", s.SwapIdV, s.Peer)
}

func (s *SwapRunning) SwapId() (bus.SwapId, bool)        { return s.SwapIdV, true }
func (s *SwapRunning) Syncers() []bus.ServiceId          { return s.SyncerIds }
func (s *SwapRunning) Connection() (bus.ServiceId, bool) { return s.Peer, true }

func (s *SwapRunning) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	switch req := ev.Request.(type) {
	case bus.FundingInfo:
		if !s.Awaiting[req.Blockchain] {
			s.Awaiting[req.Blockchain] = true
			rt.Stats.RecordAwaitingFunding(req.Blockchain)
		}
		rt.Progress.Append(ev.Bus, s.SwapIdV, bus.NewMessageEvent("awaiting funding on "+req.Blockchain))
		if rt.Config.AutoFund && req.Address != "" {
			if err := ev.Bus.Send(bus.Ctl, bus.Wallet, bus.FundAddress{Address: req.Address, Amount: req.Amount}); err != nil {
				tradeLogger.Errorw("auto-fund request failed", "swap", s.SwapIdV, "err", err)
			} else {
				rt.Progress.Append(ev.Bus, s.SwapIdV, bus.NewMessageEvent("auto-funding requested"))
			}
		}
		return s, true

	case bus.FundingCompleted:
		if s.Awaiting[req.Blockchain] {
			delete(s.Awaiting, req.Blockchain)
			rt.Stats.RecordFunded(req.Blockchain)
		}
		rt.Progress.Append(ev.Bus, s.SwapIdV, bus.NewStateTransitionEvent("funded on "+req.Blockchain))
		return s, true

	case bus.FundingCanceled:
		if s.Awaiting[req.Blockchain] {
			delete(s.Awaiting, req.Blockchain)
			rt.Stats.RecordFundingCanceled(req.Blockchain)
		}
		rt.Progress.Append(ev.Bus, s.SwapIdV, bus.NewStateTransitionEvent("funding canceled on "+req.Blockchain))
		return s, true

	case bus.PeerdUnreachable:
		tradeLogger.Infow("peer unreachable, counterparty may reconnect", "swap", s.SwapIdV, "peer", s.Peer)
		return s, true

	case bus.SwapOutcome:
		rt.Stats.RecordOutcome(req.Outcome)
		CleanUpAfterSwap(rt, ev.Bus, s.SwapIdV)
		return nil, false

	default:
		return s, true
	}
}

// ---- StartRestore ----

type StartRestore struct{ baseTrade }

func (StartRestore) String() string { return "StartRestore" }

func (s StartRestore) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	req, ok := ev.Request.(bus.RestoreCheckpoint)
	if !ok {
		return s, true
	}
	if !checkPrerequisites(rt, ev.Bus, ev.Source) {
		return nil, false
	}

	syncerIds := ensureSyncers(rt, req.Syncers)

	if _, err := rt.Launcher.Swapd(req.SwapId.String(), req.Offer.Raw(), req.LocalTradeRole); err != nil {
		tradeLogger.Errorw("failed to relaunch swapd for restore", "swap", req.SwapId, "err", err)
		replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "failed to relaunch swapd")
		return nil, false
	}

	return &RestoringSwap{
		SwapIdV:   req.SwapId,
		Offer:     req.Offer,
		SyncerIds: syncerIds,
	}, true
}

// ---- RestoringSwap ----

type RestoringSwap struct {
	baseTrade
	SwapIdV   bus.SwapId
	Offer     bus.PublicOffer
	SyncerIds []bus.ServiceId
}

func (r *RestoringSwap) String() string { return fmt.Sprintf("RestoringSwap{swap=%s}", r.SwapIdV) }
func (r *RestoringSwap) SwapId() (bus.SwapId, bool) { return r.SwapIdV, true }
func (r *RestoringSwap) Syncers() []bus.ServiceId   { return r.SyncerIds }

func (r *RestoringSwap) Next(rt *Runtime, ev Event) (TradeMachine, bool) {
	if _, ok := ev.Request.(bus.Hello); !ok || ev.Source != bus.Swap(r.SwapIdV) {
		return r, true
	}
	rt.Stats.RecordInitialized()
	return &SwapRunning{
		SwapIdV:   r.SwapIdV,
		Offer:     r.Offer,
		SyncerIds: r.SyncerIds,
		Awaiting:  make(map[string]bool),
	}, true
}

func hexKey(b []byte) string { return hex.EncodeToString(b) }
