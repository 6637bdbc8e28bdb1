package node

import (
	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var cleanupLogger = swlog.NewModuleLogger(swlog.Cleanup)

// CleanUpAfterSwap tears down everything a finished swap held onto: it
// terminates the swap daemon and tells the database to drop the
// checkpoint, then garbage-collects any peer or syncer service that no
// remaining trade machine still references. A failed Terminate send is
// treated as the service already being gone, never as an error.
func CleanUpAfterSwap(rt *Runtime, b bus.Bus, swapID bus.SwapId) {
	terminate(b, bus.Swap(swapID))
	if err := b.Send(bus.Ctl, bus.Database, bus.RemoveCheckpoint{SwapId: swapID}); err != nil {
		cleanupLogger.Infow("remove-checkpoint send failed, treating database as unreachable", "swap", swapID, "err", err)
	}

	for _, peer := range rt.Registry.Registered(bus.KindPeer) {
		if connectionHasSwapClient(rt, peer) {
			continue
		}
		terminate(b, peer)
		rt.Registry.Unregister(peer)
	}

	for _, syncer := range rt.Registry.Registered(bus.KindSyncer) {
		if syncerHasClient(rt, syncer) {
			continue
		}
		terminate(b, syncer)
		rt.Registry.Unregister(syncer)
	}
}

// CleanUpPeer handles a PeerdTerminated notification: the peer is removed
// from the registry regardless of outcome, and whether a swap was still
// bound to it is logged so the operator knows a reconnect is expected.
func CleanUpPeer(rt *Runtime, b bus.Bus, source bus.ServiceId) {
	boundSwap := connectionHasSwapClient(rt, source)
	rt.Registry.Unregister(source)
	if boundSwap {
		cleanupLogger.Infow("peer terminated with a swap still bound, reconnect expected", "peer", source)
	} else {
		cleanupLogger.Infow("peer terminated, no swap bound", "peer", source)
	}
}

func terminate(b bus.Bus, dest bus.ServiceId) {
	if err := b.Send(bus.Ctl, dest, bus.Terminate{}); err != nil {
		cleanupLogger.Infow("terminate send failed, treating as already gone", "dest", dest, "err", err)
	}
}

// connectionHasSwapClient reports whether any live trade machine still
// treats peer as its connection.
func connectionHasSwapClient(rt *Runtime, peer bus.ServiceId) bool {
	for _, m := range rt.trades {
		if conn, ok := m.Connection(); ok && conn == peer {
			return true
		}
	}
	return false
}

// syncerHasClient reports whether any live trade machine still lists syncer
// among its syncers.
func syncerHasClient(rt *Runtime, syncer bus.ServiceId) bool {
	for _, m := range rt.trades {
		for _, s := range m.Syncers() {
			if s == syncer {
				return true
			}
		}
	}
	return false
}
