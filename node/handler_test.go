package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapd-project/swapd/bus"
	"github.com/swapd-project/swapd/bus/bustest"
	"github.com/swapd-project/swapd/launch"
)

func newTestRuntime(t *testing.T) (*Runtime, *Registry) {
	t.Helper()
	reg := NewRegistry("wallet-token")
	launcher, err := launch.NewLauncher(launch.SharedFlags{DataDir: t.TempDir()})
	require.NoError(t, err)
	return NewRuntime(RuntimeConfig{}, reg, launcher), reg
}

// Ready gate.
func TestHandle_GetInfo_BeforeWallet_FailsReady(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	client := bus.Client("cli-1")

	require.NoError(t, rt.Handle(b, bus.Ctl, client, bus.GetInfo{}))

	sent, ok := b.Last()
	require.True(t, ok)
	failure, ok := sent.Payload.(bus.FailureResp)
	require.True(t, ok)
	assert.Contains(t, failure.Info, "walletd still starting")
}

func TestHandle_GetInfo_AfterWalletAndDatabaseHello_Succeeds(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	client := bus.Client("cli-1")

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Wallet, bus.Hello{}))
	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Database, bus.Hello{}))
	require.NoError(t, rt.Handle(b, bus.Ctl, client, bus.GetInfo{}))

	sent, ok := b.Last()
	require.True(t, ok)
	info, ok := sent.Payload.(bus.NodeInfoResp)
	require.True(t, ok)
	assert.GreaterOrEqual(t, info.Uptime.Nanoseconds(), int64(0))
	assert.Empty(t, info.Peers)
}

func TestHandle_RejectsUnsupportedBusName(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()

	err := rt.Handle(b, bus.Name(99), bus.Client("c"), bus.GetInfo{})
	assert.ErrorIs(t, err, bus.ErrNotSupported)
}

// A Hello from another Orchestrator identity is rejected without
// touching the registry, and broadcastHello still runs (harmlessly, since
// there are no live machines).
func TestHandle_Hello_FromOrchestrator_NoRegistryChange(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()

	require.NoError(t, rt.Handle(b, bus.Ctl, bus.Orchestrator, bus.Hello{}))

	assert.False(t, rt.Registry.IsRegistered(bus.Orchestrator))
}

func TestHandle_MsgHello_IsTransportNoOp(t *testing.T) {
	rt, _ := newTestRuntime(t)
	b := bustest.New()
	peer := bus.Peer("1.2.3.4:1")

	require.NoError(t, rt.Handle(b, bus.Msg, peer, bus.Hello{}))

	assert.False(t, rt.Registry.IsRegistered(peer))
	assert.Empty(t, b.All())
}
