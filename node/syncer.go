package node

import (
	"fmt"

	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var syncerLogger = swlog.NewModuleLogger(swlog.SyncerFSM)

// SyncerMachine is the short-lived, per-task state machine that drives a
// single outstanding syncer task.
type SyncerMachine interface {
	String() string
	TaskId() (bus.TaskId, bool)
	Syncer() (bus.ServiceId, bool)
	Next(rt *Runtime, ev Event) (SyncerMachine, bool)
}

// SyncerStart is the initial state, awaiting the request that names the
// task to perform.
type SyncerStart struct{}

func (SyncerStart) String() string                     { return "Start" }
func (SyncerStart) TaskId() (bus.TaskId, bool)          { return 0, false }
func (SyncerStart) Syncer() (bus.ServiceId, bool)       { return bus.ServiceId{}, false }

func (s SyncerStart) Next(rt *Runtime, ev Event) (SyncerMachine, bool) {
	req, ok := ev.Request.(bus.SweepAddress)
	if !ok {
		return s, true
	}

	taskID := rt.nextTaskID()
	syncerID := bus.Syncer(req.Blockchain, req.Network)
	if !rt.Registry.IsRegistered(syncerID) && !rt.Registry.IsSpawning(syncerID) {
		var err error
		switch req.Blockchain {
		case "bitcoin":
			_, err = rt.Launcher.SyncerdBitcoin(req.Network, rt.Config.BitcoinElectrum[req.Network])
		case "monero":
			_, err = rt.Launcher.SyncerdMonero(rt.Config.MoneroSyncer[req.Network])
		default:
			replyFailure(ev.Bus, ev.Source, bus.FailureUnknown, "unknown blockchain: "+req.Blockchain)
			return nil, false
		}
		if err != nil {
			syncerLogger.Errorw("failed to launch syncer for sweep", "blockchain", req.Blockchain, "err", err)
			replyFailure(ev.Bus, ev.Source, bus.FailureInvalidEndpoint, "failed to launch syncer")
			return nil, false
		}
		rt.Registry.MarkSpawning(syncerID)
	}

	if err := ev.Bus.Send(bus.Ctl, syncerID, bus.SweepTask{
		TaskId:     taskID,
		Blockchain: req.Blockchain,
		Network:    req.Network,
		Address:    req.Address,
	}); err != nil {
		syncerLogger.Errorw("failed to dispatch sweep task", "syncer", syncerID, "err", err)
		replyFailure(ev.Bus, ev.Source, bus.FailureUnknown, "failed to dispatch sweep task")
		return nil, false
	}

	return &SyncerAwaitingSweep{
		TaskIdV: taskID,
		SyncerV: syncerID,
		Client:  ev.Source,
	}, true
}

// SyncerAwaitingSweep awaits the matching SweepSuccess event.
type SyncerAwaitingSweep struct {
	TaskIdV bus.TaskId
	SyncerV bus.ServiceId
	Client  bus.ServiceId
}

func (a *SyncerAwaitingSweep) String() string {
	return fmt.Sprintf("AwaitingSweep{task=%d,syncer=%s}", a.TaskIdV, a.SyncerV)
}
func (a *SyncerAwaitingSweep) TaskId() (bus.TaskId, bool)    { return a.TaskIdV, true }
func (a *SyncerAwaitingSweep) Syncer() (bus.ServiceId, bool) { return a.SyncerV, true }

func (a *SyncerAwaitingSweep) Next(rt *Runtime, ev Event) (SyncerMachine, bool) {
	req, ok := ev.Request.(bus.SyncerEvent)
	if !ok || req.Kind != bus.SyncerEventSweepSuccess || req.TaskId != a.TaskIdV {
		return a, true
	}
	if err := ev.Bus.Send(bus.Ctl, a.Client, bus.StringResp{Text: "sweep complete"}); err != nil {
		syncerLogger.Errorw("failed to notify client of sweep completion", "client", a.Client, "err", err)
	}
	return nil, false
}
