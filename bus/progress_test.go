package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "Success", OutcomeSuccess.String())
	assert.Equal(t, "Refund", OutcomeRefund.String())
	assert.Equal(t, "Punish", OutcomePunish.String())
	assert.Equal(t, "Abort", OutcomeAbort.String())
}

func TestProgressEvent_Constructors_SetKindAndPayload(t *testing.T) {
	msg := NewMessageEvent("hello")
	assert.Equal(t, ProgressMessage, msg.Kind)
	assert.Equal(t, "hello", msg.Text)

	st := NewStateTransitionEvent("XmrLocked -> BtcRedeemed")
	assert.Equal(t, ProgressStateTransition, st.Kind)

	success := NewSuccessEvent(OutcomeRefund)
	assert.Equal(t, ProgressSuccess, success.Kind)
	assert.Equal(t, OutcomeRefund, success.Outcome)

	failure := NewFailureEvent(FailureInvalidEndpoint, "bad host")
	assert.Equal(t, ProgressFailure, failure.Kind)
	assert.Equal(t, FailureInvalidEndpoint, failure.Code)
	assert.Equal(t, "bad host", failure.Info)
}
