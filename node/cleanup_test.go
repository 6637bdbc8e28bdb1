package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapd-project/swapd/bus"
	"github.com/swapd-project/swapd/bus/bustest"
)

// A trade machine bound to Peer(A) reaches SwapOutcome(Abort);
// CleanUpAfterSwap fires; since no other machine still references Peer(A),
// it receives Terminate and is dropped from the registry.
func TestCleanUpAfterSwap_UnregistersPeerWithNoRemainingReferences(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	swapID := bus.NewSwapId()
	peer := bus.Peer("127.0.0.1:9100")

	rt.Registry.OnHello(b, peer)
	rt.addTrade(&SwapRunning{SwapIdV: swapID, Peer: peer, Awaiting: make(map[string]bool)})

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Swap(swapID), bus.SwapOutcome{Outcome: bus.OutcomeAbort}))

	assert.False(t, rt.Registry.IsRegistered(peer))
	sentTerminate := false
	for _, s := range b.To(peer) {
		if _, ok := s.Payload.(bus.Terminate); ok {
			sentTerminate = true
		}
	}
	assert.True(t, sentTerminate)
}

// A peer still referenced by another live machine survives cleanup.
func TestCleanUpAfterSwap_KeepsPeerStillReferencedByAnotherMachine(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	peer := bus.Peer("127.0.0.1:9101")
	rt.Registry.OnHello(b, peer)

	finishedSwap := bus.NewSwapId()
	rt.addTrade(&SwapRunning{SwapIdV: finishedSwap, Peer: peer, Awaiting: make(map[string]bool)})

	otherSwap := bus.NewSwapId()
	rt.addTrade(&SwapRunning{SwapIdV: otherSwap, Peer: peer, Awaiting: make(map[string]bool)})

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Swap(finishedSwap), bus.SwapOutcome{Outcome: bus.OutcomeSuccess}))

	assert.True(t, rt.Registry.IsRegistered(peer))
}

// CleanUpPeer unregisters the peer regardless of whether a swap is bound.
func TestCleanUpPeer_UnregistersRegardlessOfBoundSwap(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	peer := bus.Peer("127.0.0.1:9102")
	rt.Registry.OnHello(b, peer)

	swapID := bus.NewSwapId()
	rt.addTrade(&SwapRunning{SwapIdV: swapID, Peer: peer, Awaiting: make(map[string]bool)})

	require.NoError(t, rt.Handle(b, bus.Ctl, peer, bus.PeerdTerminated{}))

	assert.False(t, rt.Registry.IsRegistered(peer))
}
