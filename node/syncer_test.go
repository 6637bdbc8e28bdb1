package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapd-project/swapd/bus"
	"github.com/swapd-project/swapd/bus/bustest"
)

// A sweep request round-trips through a syncer task and a second, stale
// success event for the same task is dropped.
func TestSweepAddress_RoundtripThenDropsDuplicateEvent(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	syncerID := bus.Syncer("monero", "stagenet")
	rt.Registry.OnHello(b, syncerID) // pretend the syncer is already up

	client := bus.Client("cli-1")
	require.NoError(t, rt.Handle(b, bus.Ctl, client, bus.SweepAddress{
		Blockchain: "monero", Network: "stagenet", Address: "4xyz",
	}))

	// The task id the syncer must echo back is read off the dispatched
	// SweepTask, not off the orchestrator's own internal bookkeeping.
	dispatched := b.To(syncerID)
	require.Len(t, dispatched, 1)
	task, ok := dispatched[0].Payload.(bus.SweepTask)
	require.True(t, ok)
	taskID := task.TaskId
	assert.Equal(t, bus.TaskId(1), taskID)
	require.Len(t, rt.syncers, 1)

	require.NoError(t, rt.Handle(b, bus.Ctl, syncerID, bus.SyncerEvent{
		Kind: bus.SyncerEventSweepSuccess, TaskId: taskID,
	}))
	assert.Empty(t, rt.syncers)

	sent := b.To(client)
	require.NotEmpty(t, sent)
	_, isString := sent[len(sent)-1].Payload.(bus.StringResp)
	assert.True(t, isString)

	// A second SweepSuccess for the now-gone task id is dropped.
	require.NoError(t, rt.Handle(b, bus.Ctl, syncerID, bus.SyncerEvent{
		Kind: bus.SyncerEventSweepSuccess, TaskId: taskID,
	}))
	assert.Empty(t, rt.syncers)
}

// Every TaskId issued is strictly greater than every previously issued
// TaskId in the same process.
func TestNextTaskID_StrictlyIncreasing(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var prev bus.TaskId
	for i := 0; i < 50; i++ {
		id := rt.nextTaskID()
		assert.Greater(t, id, prev)
		prev = id
	}
}
