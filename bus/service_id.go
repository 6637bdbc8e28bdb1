// Package bus defines the message-bus contract the orchestrator dispatches
// over: the two logical channels (Msg, Ctl), the ServiceId addressing
// scheme, and the request/response taxonomy exchanged on them. The concrete
// wire transport between microservices is not implemented here — only the
// interface the core consumes, per the child-process and bus contracts.
package bus

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Kind tags which ServiceId variant is populated.
type Kind uint8

const (
	KindOrchestrator Kind = iota
	KindWallet
	KindDatabase
	KindGrpcFrontend
	KindPeer
	KindSwap
	KindSyncer
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindOrchestrator:
		return "Orchestrator"
	case KindWallet:
		return "Wallet"
	case KindDatabase:
		return "Database"
	case KindGrpcFrontend:
		return "GrpcFrontend"
	case KindPeer:
		return "Peer"
	case KindSwap:
		return "Swap"
	case KindSyncer:
		return "Syncer"
	case KindClient:
		return "Client"
	default:
		return "Unknown"
	}
}

// SwapId is a 32-byte opaque identifier of a single in-flight swap.
type SwapId [32]byte

// NewSwapId allocates a fresh, random swap identifier.
func NewSwapId() SwapId {
	var id SwapId
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand failing means the platform's entropy source is
		// broken; there is nothing sensible to do but panic.
		panic("bus: failed to read randomness for SwapId: " + err.Error())
	}
	return id
}

// SwapIdFromHex parses a hex-encoded swap id, as received from a peer or the
// CLI.
func SwapIdFromHex(s string) (SwapId, error) {
	var id SwapId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("bus: swap id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (s SwapId) String() string { return hex.EncodeToString(s[:]) }

// ServiceId names a bus endpoint. It is a tagged union represented as a flat,
// comparable struct so it can be used directly as a map key — equality and
// hashing are structural, matching every field the spec's variants carry.
type ServiceId struct {
	Kind       Kind
	Addr       string // Peer address, or Client id
	Swap       SwapId // populated for KindSwap
	Blockchain string // populated for KindSyncer
	Network    string // populated for KindSyncer
}

var (
	Orchestrator = ServiceId{Kind: KindOrchestrator}
	Wallet       = ServiceId{Kind: KindWallet}
	Database     = ServiceId{Kind: KindDatabase}
	GrpcFrontend = ServiceId{Kind: KindGrpcFrontend}
)

// Peer addresses a peerd connection by node address.
func Peer(addr string) ServiceId { return ServiceId{Kind: KindPeer, Addr: addr} }

// Swap addresses a swapd instance by swap id.
func Swap(id SwapId) ServiceId { return ServiceId{Kind: KindSwap, Swap: id} }

// Syncer addresses a per-blockchain chain watcher.
func Syncer(blockchain, network string) ServiceId {
	return ServiceId{Kind: KindSyncer, Blockchain: blockchain, Network: network}
}

// Client addresses a gRPC/CLI client subscribed to progress updates.
func Client(id string) ServiceId { return ServiceId{Kind: KindClient, Addr: id} }

func (s ServiceId) String() string {
	switch s.Kind {
	case KindPeer:
		return fmt.Sprintf("Peer(%s)", s.Addr)
	case KindSwap:
		return fmt.Sprintf("Swap(%s)", s.Swap)
	case KindSyncer:
		return fmt.Sprintf("Syncer(%s/%s)", s.Blockchain, s.Network)
	case KindClient:
		return fmt.Sprintf("Client(%s)", s.Addr)
	default:
		return s.Kind.String()
	}
}
