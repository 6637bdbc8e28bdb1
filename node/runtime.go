package node

import (
	"sync/atomic"
	"time"

	"github.com/swapd-project/swapd/bus"
	"github.com/swapd-project/swapd/launch"
)

// RuntimeConfig carries the configuration inputs the trade/syncer machines
// consult: whether gRPC is enabled, whether auto-funding is enabled, and
// the syncer server URLs keyed by network.
type RuntimeConfig struct {
	GrpcEnabled bool
	GrpcPort    string
	AutoFund    bool

	BitcoinElectrum map[string]string               // network -> electrum server URL
	MoneroSyncer    map[string]launch.MoneroSyncerConfig // network -> syncer config
}

// Runtime is the single long-lived object the dispatch loop mutates. It
// owns the registry, the offer/swap catalog, the live trade and syncer
// state machines, progress pub/sub, and stats. Because the orchestrator
// dispatches one request at a time, Runtime carries no lock.
type Runtime struct {
	Config   RuntimeConfig
	Registry *Registry
	Launcher *launch.Launcher
	Stats    *Stats
	Progress *Progress

	// publicOffers is the global set of currently-advertised offers,
	// disjoint from any machine's consumed_offer().
	publicOffers map[bus.OfferId]bus.PublicOffer

	// listens is the set of addresses the node is currently listening on as
	// a maker.
	listens map[string]struct{}

	trades  map[uint64]TradeMachine
	syncers map[bus.TaskId]SyncerMachine

	nextMachineID uint64
	taskCounter   uint32

	startedAt time.Time
}

// NewRuntime wires a fresh Runtime from its component parts.
func NewRuntime(cfg RuntimeConfig, reg *Registry, launcher *launch.Launcher) *Runtime {
	return &Runtime{
		Config:       cfg,
		Registry:     reg,
		Launcher:     launcher,
		Stats:        NewStats(),
		Progress:     NewProgress(),
		publicOffers: make(map[bus.OfferId]bus.PublicOffer),
		listens:      make(map[string]struct{}),
		trades:       make(map[uint64]TradeMachine),
		syncers:      make(map[bus.TaskId]SyncerMachine),
		startedAt:    time.Now(),
	}
}

// nextTaskID allocates a fresh, strictly-increasing TaskId.
func (rt *Runtime) nextTaskID() bus.TaskId {
	return bus.TaskId(atomic.AddUint32(&rt.taskCounter, 1))
}

func (rt *Runtime) addTrade(m TradeMachine) uint64 {
	id := rt.nextMachineID
	rt.nextMachineID++
	rt.trades[id] = m
	return id
}

func (rt *Runtime) registerOffer(o bus.PublicOffer) {
	rt.publicOffers[o.Id()] = o
}

func (rt *Runtime) unregisterOffer(id bus.OfferId) {
	delete(rt.publicOffers, id)
}

func (rt *Runtime) isListening(addr string) bool {
	_, ok := rt.listens[addr]
	return ok
}

func (rt *Runtime) markListening(addr string) {
	rt.listens[addr] = struct{}{}
}

// AllTrades returns a snapshot of every live trade machine.
func (rt *Runtime) AllTrades() []TradeMachine {
	out := make([]TradeMachine, 0, len(rt.trades))
	for _, m := range rt.trades {
		out = append(out, m)
	}
	return out
}

// Listens returns the addresses currently being listened on.
func (rt *Runtime) Listens() []string {
	out := make([]string, 0, len(rt.listens))
	for a := range rt.listens {
		out = append(out, a)
	}
	return out
}
