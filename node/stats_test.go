package node

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swapd-project/swapd/bus"
)

// awaiting_funding never goes negative, and funded +
// funding_canceled never exceeds total initialized.
func TestStats_FundingCountersStayConsistent(t *testing.T) {
	s := NewStats()

	s.RecordFunded("bitcoin") // no matching RecordAwaitingFunding first
	assert.Equal(t, uint64(0), s.AwaitingFunding("bitcoin"))

	s.RecordInitialized()
	s.RecordAwaitingFunding("bitcoin")
	assert.Equal(t, uint64(1), s.AwaitingFunding("bitcoin"))

	s.RecordFunded("bitcoin")
	assert.Equal(t, uint64(0), s.AwaitingFunding("bitcoin"))
	assert.LessOrEqual(t, s.Funded("bitcoin")+s.FundingCanceled("bitcoin"), s.Initialized())
}

func TestStats_RecordOutcome_IncrementsExactlyOneSlot(t *testing.T) {
	s := NewStats()

	s.RecordOutcome(bus.OutcomeRefund)

	assert.Equal(t, uint64(0), s.Success())
	assert.Equal(t, uint64(1), s.Refund())
	assert.Equal(t, uint64(0), s.Punish())
	assert.Equal(t, uint64(0), s.Abort())
}
