package node

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/swapd-project/swapd/bus"
	swlog "github.com/swapd-project/swapd/log"
)

var progressLogger = swlog.NewModuleLogger(swlog.Progress)

// ErrNoProgressYet is returned by Read when the swap is running but hasn't
// emitted anything yet.
var ErrNoProgressYet = errors.New("node: no progress yet")

// ErrUnknownSwap is returned by Read/Subscribe for a swap id that is neither
// running nor has ever had a progress queue.
var ErrUnknownSwap = errors.New("node: unknown swapd")

// deadSubscriberCacheSize bounds how many recently-dropped subscriber
// failures Progress remembers, so a subscriber flapping across many swaps in
// the same tick logs once instead of once per swap.
const deadSubscriberCacheSize = 256

// Progress holds the per-swap append-only progress queue and subscriber
// set. Queues are never truncated during a swap's lifetime.
type Progress struct {
	queues      map[bus.SwapId][]bus.ProgressEvent
	subscribers map[bus.SwapId]map[bus.ServiceId]struct{}

	recentDeadSubs *lru.Cache
}

// NewProgress constructs an empty progress store.
func NewProgress() *Progress {
	cache, err := lru.New(deadSubscriberCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which deadSubscriberCacheSize
		// never is.
		panic(err)
	}
	return &Progress{
		queues:         make(map[bus.SwapId][]bus.ProgressEvent),
		subscribers:    make(map[bus.SwapId]map[bus.ServiceId]struct{}),
		recentDeadSubs: cache,
	}
}

// Append records ev for swap, creating its queue on first occurrence, then
// forwards ev to every current subscriber. A subscriber whose send fails is
// dropped from the subscription set.
func (p *Progress) Append(b bus.Bus, swap bus.SwapId, ev bus.ProgressEvent) {
	p.queues[swap] = append(p.queues[swap], ev)

	subs := p.subscribers[swap]
	if len(subs) == 0 {
		return
	}
	for client := range subs {
		p.push(b, swap, client, ev)
	}
}

func (p *Progress) push(b bus.Bus, swap bus.SwapId, client bus.ServiceId, ev bus.ProgressEvent) {
	if err := b.Send(bus.Ctl, client, bus.ProgressPush{SwapId: swap, Event: ev}); err != nil {
		key := client
		if _, seen := p.recentDeadSubs.Get(key); !seen {
			progressLogger.Infow("dropping subscriber after failed send", "swap", swap, "client", client, "err", err)
			p.recentDeadSubs.Add(key, struct{}{})
		}
		p.removeSubscriber(swap, client)
	}
}

// Read returns the entire queue for swap. running tells Read whether the
// swap has a live trade machine, to pick between "no progress yet" and
// "unknown swapd" when no queue exists.
func (p *Progress) Read(swap bus.SwapId, running bool) (bus.SwapProgressResp, error) {
	if q, ok := p.queues[swap]; ok {
		out := make([]bus.ProgressEvent, len(q))
		copy(out, q)
		return bus.SwapProgressResp{Events: out}, nil
	}
	if running {
		return bus.SwapProgressResp{}, ErrNoProgressYet
	}
	return bus.SwapProgressResp{}, ErrUnknownSwap
}

// Subscribe is permitted only if the swap is running or has a progress
// queue. It inserts client, synchronously replays the full queue to it, and
// is idempotent on a repeat subscribe from the same client.
func (p *Progress) Subscribe(b bus.Bus, swap bus.SwapId, client bus.ServiceId, running bool) error {
	_, hasQueue := p.queues[swap]
	if !running && !hasQueue {
		return ErrUnknownSwap
	}

	subs, ok := p.subscribers[swap]
	if !ok {
		subs = make(map[bus.ServiceId]struct{})
		p.subscribers[swap] = subs
	}
	subs[client] = struct{}{}

	for _, ev := range p.queues[swap] {
		p.push(b, swap, client, ev)
	}
	return nil
}

// Unsubscribe removes client from swap's subscriber set; if the set becomes
// empty, the entry is removed entirely. Unsubscribing an unknown swap is a
// no-op.
func (p *Progress) Unsubscribe(swap bus.SwapId, client bus.ServiceId) {
	p.removeSubscriber(swap, client)
}

func (p *Progress) removeSubscriber(swap bus.SwapId, client bus.ServiceId) {
	subs, ok := p.subscribers[swap]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(p.subscribers, swap)
	}
}
