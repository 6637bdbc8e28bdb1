package node

import (
	"github.com/pkg/errors"
	set "gopkg.in/fatih/set.v0"

	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var registryLogger = swlog.NewModuleLogger(swlog.Registry)

// ErrNotReady is returned for any operation gated on services_ready() or
// peer_keys_ready() that is attempted too early.
var ErrNotReady = errors.New("node: prerequisite service still starting")

// NodeKeys is the secret/public key pair handed back by Wallet in its Keys
// reply to GetKeys.
type NodeKeys struct {
	Secret []byte
	Public []byte
}

// Registry tracks which microservice identities are spawning vs registered,
// and holds the node keys once the wallet reports them. A ServiceId is in
// at most one of {spawning, registered} at any time.
//
// The orchestrator dispatches one request at a time, so Registry has no
// internal lock: every mutation happens on the single dispatch goroutine.
type Registry struct {
	spawning   *set.Set
	registered *set.Set

	walletToken string
	keys        *NodeKeys
}

// NewRegistry constructs an empty registry. walletToken is forwarded to
// Wallet in GetKeys once it registers.
func NewRegistry(walletToken string) *Registry {
	return &Registry{
		spawning:    set.New(),
		registered:  set.New(),
		walletToken: walletToken,
	}
}

// MarkSpawning records id as spawning, e.g. right after a successful Launch.
func (r *Registry) MarkSpawning(id bus.ServiceId) {
	r.spawning.Add(id)
}

// IsRegistered reports whether id is currently registered.
func (r *Registry) IsRegistered(id bus.ServiceId) bool {
	return r.registered.Has(id)
}

// IsSpawning reports whether id is currently awaiting its first Hello.
func (r *Registry) IsSpawning(id bus.ServiceId) bool {
	return r.spawning.Has(id)
}

// Registered lists every currently registered ServiceId of the given kind.
func (r *Registry) Registered(kind bus.Kind) []bus.ServiceId {
	var out []bus.ServiceId
	for _, v := range r.registered.List() {
		id := v.(bus.ServiceId)
		if id.Kind == kind {
			out = append(out, id)
		}
	}
	return out
}

// Unregister removes id from the registered set, if present.
func (r *Registry) Unregister(id bus.ServiceId) {
	r.registered.Remove(id)
}

// ServicesReady succeeds only once both Wallet and Database are registered.
func (r *Registry) ServicesReady() error {
	if !r.registered.Has(bus.Wallet) {
		return errors.Wrap(ErrNotReady, "walletd still starting")
	}
	if !r.registered.Has(bus.Database) {
		return errors.Wrap(ErrNotReady, "databased still starting")
	}
	return nil
}

// PeerKeysReady returns the node's secret/public key pair, populated once
// Wallet's Keys reply has been observed.
func (r *Registry) PeerKeysReady() (*NodeKeys, error) {
	if r.keys == nil {
		return nil, errors.Wrap(ErrNotReady, "node keys not yet received from walletd")
	}
	return r.keys, nil
}

// SetKeys records the Keys reply from Wallet.
func (r *Registry) SetKeys(k NodeKeys) {
	r.keys = &k
}

// OnHello is the dispatcher for liveness announcements. b is used to send
// GetKeys back to a freshly registered Wallet.
func (r *Registry) OnHello(b bus.Bus, source bus.ServiceId) {
	switch source.Kind {
	case bus.KindOrchestrator:
		registryLogger.Errorw("received Hello from another orchestrator identity, ignoring", "source", source)

	case bus.KindWallet:
		r.spawning.Remove(source)
		r.registered.Add(source)
		if err := b.Send(bus.Ctl, source, bus.GetKeys{WalletToken: r.walletToken}); err != nil {
			registryLogger.Errorw("failed to request node keys from walletd", "err", err)
		}

	case bus.KindDatabase:
		r.spawning.Remove(source)
		r.registered.Add(source)

	case bus.KindPeer:
		wasRegistered := r.registered.Has(source)
		r.spawning.Remove(source)
		r.registered.Add(source)
		if wasRegistered {
			registryLogger.Infow("peer re-announced itself, treating as relaunched externally", "peer", source)
		} else {
			registryLogger.Infow("peer registered", "peer", source)
		}

	case bus.KindSyncer:
		if !r.spawning.Has(source) {
			registryLogger.Errorw("syncer Hello without a matching spawn, accepting anyway", "syncer", source)
		}
		r.spawning.Remove(source)
		r.registered.Add(source)

	case bus.KindSwap:
		// Swap lifetimes are tracked by the trade state machine, not the
		// registry; nothing to do.

	default:
		registryLogger.Errorw("Hello from an unexpected service kind", "source", source)
	}
}
