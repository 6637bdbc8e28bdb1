package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapd-project/swapd/bus"
	"github.com/swapd-project/swapd/bus/bustest"
)

func readyRuntime(t *testing.T) (*Runtime, *bustest.FakeBus) {
	t.Helper()
	rt, reg := newTestRuntime(t)
	b := bustest.New()
	rt.Handle(b, bus.Ctl, bus.Wallet, bus.Hello{})
	rt.Handle(b, bus.Ctl, bus.Database, bus.Hello{})
	reg.SetKeys(NodeKeys{Secret: []byte{1, 2, 3}, Public: []byte{4, 5, 6}})
	return rt, bustest.New() // fresh bus so the Hello noise above doesn't pollute assertions
}

func testOffer(raw string) bus.PublicOffer {
	var id bus.OfferId
	copy(id[:], raw)
	return bus.NewPublicOffer(id, raw)
}

// Make offer / revoke.
func TestMakeOfferThenRevoke(t *testing.T) {
	rt, b := readyRuntime(t)
	offer := testOffer("offer-1")
	rt.markListening("127.0.0.1:9000") // avoid spawning a real peerd in-test

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Client("cli"), bus.MakeOffer{
		Offer:      offer,
		ListenAddr: "127.0.0.1:9000",
	}))

	_, hasOffer := rt.publicOffers[offer.Id()]
	assert.True(t, hasOffer)

	var found TradeMachine
	for _, m := range rt.trades {
		if o, ok := m.OpenOffer(); ok && o.Id() == offer.Id() {
			found = m
		}
	}
	require.NotNil(t, found)
	_, isMaker := found.(*MakerAwaitingTakerCommit)
	assert.True(t, isMaker)

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Client("cli"), bus.RevokeOffer{Offer: offer}))

	_, hasOffer = rt.publicOffers[offer.Id()]
	assert.False(t, hasOffer)
	for _, m := range rt.trades {
		_, ok := m.OpenOffer()
		assert.False(t, ok, "revoked offer must not remain open on any machine")
	}

	// A second RevokeOffer for the same, now-gone offer is dropped with a
	// router warning and changes nothing.
	before := len(rt.trades)
	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Client("cli"), bus.RevokeOffer{Offer: offer}))
	assert.Equal(t, before, len(rt.trades))
}

// An offer id is open_offer() of at most one machine and,
// disjointly, consumed_offer() of at most one.
func TestOfferExclusivity_OpenVsConsumed(t *testing.T) {
	rt, b := readyRuntime(t)
	offer := testOffer("offer-excl")
	rt.markListening("127.0.0.1:9001")

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Client("cli"), bus.MakeOffer{
		Offer: offer, ListenAddr: "127.0.0.1:9001",
	}))

	var id uint64
	var m *MakerAwaitingTakerCommit
	for mid, tm := range rt.trades {
		if mk, ok := tm.(*MakerAwaitingTakerCommit); ok {
			id, m = mid, mk
		}
	}
	require.NotNil(t, m)

	delete(rt.trades, id)
	next, ok := m.Next(rt, Event{Bus: b, Source: bus.Peer("127.0.0.1:1"), Request: bus.TakerCommit{Offer: offer}})
	require.True(t, ok)
	rt.trades[id] = next

	openCount, consumedCount := 0, 0
	for _, tm := range rt.trades {
		if o, ok := tm.OpenOffer(); ok && o.Id() == offer.Id() {
			openCount++
		}
		if o, ok := tm.ConsumedOffer(); ok && o.Id() == offer.Id() {
			consumedCount++
		}
	}
	assert.Equal(t, 0, openCount)
	assert.Equal(t, 1, consumedCount)
}

// After SwapOutcome, the trade machine is gone and stats were
// incremented by exactly one across all outcome slots combined.
func TestSwapOutcome_RemovesMachineAndIncrementsStatsOnce(t *testing.T) {
	rt, b := readyRuntime(t)
	swapID := bus.NewSwapId()
	peer := bus.Peer("127.0.0.1:9002")
	rt.addTrade(&SwapRunning{SwapIdV: swapID, Peer: peer, Awaiting: make(map[string]bool)})
	rt.Registry.OnHello(b, peer)

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Swap(swapID), bus.SwapOutcome{Outcome: bus.OutcomeRefund}))

	for _, m := range rt.trades {
		if id, ok := m.SwapId(); ok {
			assert.NotEqual(t, swapID, id)
		}
	}

	total := rt.Stats.Success() + rt.Stats.Refund() + rt.Stats.Punish() + rt.Stats.Abort()
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, uint64(1), rt.Stats.Refund())
}
