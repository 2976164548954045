package reject

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsKind(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{CodeNoSession, KindValidation},
		{CodeMissingItem, KindValidation},
		{CodeAlertTooHigh, KindAuthorization},
		{CodeCooldown, KindAuthorization},
		{CodeSessionOpen, KindConflict},
		{CodeDeliveryOpen, KindConflict},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "").Kind)
		})
	}
}

func TestMissingItem_Shortfall(t *testing.T) {
	e := MissingItem("weed", 5, 2)
	assert.Equal(t, CodeMissingItem, e.Code)
	assert.Equal(t, 3, e.Shortfall)
	assert.Equal(t, "weed", e.ItemID)
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("start negotiation: %w", Cooldown(90*time.Second))

	assert.True(t, Is(err, CodeCooldown))
	assert.False(t, Is(err, CodeLockdown))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, e.Remaining)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "rejected (conflict): session_open", New(CodeSessionOpen, "").Error())
	assert.Equal(t,
		"rejected (authorization): alert_too_high: alert level Combat, allowed up to Suspicious",
		AlertTooHigh("Combat", "Suspicious").Error())
}
