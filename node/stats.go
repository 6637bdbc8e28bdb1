package node

import "github.com/swapd-project/swapd/bus"

// Stats holds the counters the orchestrator keeps: four outcome counters,
// one "swap initialized" counter, and three funding-phase counters kept
// separately per blockchain (eleven in all for a two-chain swap pair). All
// but awaiting-funding only ever grow. It is mutated only from the single
// dispatch goroutine, so it needs no lock.
type Stats struct {
	success uint64
	refund  uint64
	punish  uint64
	abort   uint64

	initialized uint64

	awaitingFunding map[string]uint64
	funded          map[string]uint64
	fundingCanceled map[string]uint64
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats {
	return &Stats{
		awaitingFunding: make(map[string]uint64),
		funded:          make(map[string]uint64),
		fundingCanceled: make(map[string]uint64),
	}
}

// RecordInitialized increments the swap-initialized counter; called when a
// trade machine reaches SwapRunning for the first time.
func (s *Stats) RecordInitialized() {
	s.initialized++
}

// RecordOutcome increments the matching outcome counter exactly once.
func (s *Stats) RecordOutcome(o bus.Outcome) {
	switch o {
	case bus.OutcomeSuccess:
		s.success++
	case bus.OutcomeRefund:
		s.refund++
	case bus.OutcomePunish:
		s.punish++
	case bus.OutcomeAbort:
		s.abort++
	}
}

// RecordAwaitingFunding increments awaiting-funding for blockchain. Called
// when a trade machine starts expecting on-chain funding.
func (s *Stats) RecordAwaitingFunding(blockchain string) {
	s.awaitingFunding[blockchain]++
}

// RecordFunded decrements awaiting-funding and increments funded for
// blockchain. With nothing awaiting funding on blockchain it changes no
// counter, so awaiting_funding never goes negative and funded only counts
// swaps that were awaiting funding.
func (s *Stats) RecordFunded(blockchain string) {
	if s.decrementAwaiting(blockchain) {
		s.funded[blockchain]++
	}
}

// RecordFundingCanceled decrements awaiting-funding and increments
// funding-canceled for blockchain; like RecordFunded, it changes no counter
// when nothing is awaiting funding on blockchain.
func (s *Stats) RecordFundingCanceled(blockchain string) {
	if s.decrementAwaiting(blockchain) {
		s.fundingCanceled[blockchain]++
	}
}

func (s *Stats) decrementAwaiting(blockchain string) bool {
	if s.awaitingFunding[blockchain] == 0 {
		return false
	}
	s.awaitingFunding[blockchain]--
	return true
}

func (s *Stats) AwaitingFunding(blockchain string) uint64 { return s.awaitingFunding[blockchain] }
func (s *Stats) Funded(blockchain string) uint64          { return s.funded[blockchain] }
func (s *Stats) FundingCanceled(blockchain string) uint64 { return s.fundingCanceled[blockchain] }
func (s *Stats) Success() uint64                          { return s.success }
func (s *Stats) Refund() uint64                           { return s.refund }
func (s *Stats) Punish() uint64                           { return s.punish }
func (s *Stats) Abort() uint64                            { return s.abort }
func (s *Stats) Initialized() uint64                      { return s.initialized }
