package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSagaStepCounts(t *testing.T) {
	before := testutil.ToFloat64(sagaStepsTotal.WithLabelValues("register", "create_profile", "ok"))

	RecordSagaStep("register", "create_profile", "ok")

	assert.Equal(t, before+1, testutil.ToFloat64(sagaStepsTotal.WithLabelValues("register", "create_profile", "ok")))
}

func TestRecordSagaStepDefaultsEmptyLabels(t *testing.T) {
	before := testutil.ToFloat64(sagaStepsTotal.WithLabelValues("unknown", "unknown", "unknown"))

	RecordSagaStep("", "", "")

	assert.Equal(t, before+1, testutil.ToFloat64(sagaStepsTotal.WithLabelValues("unknown", "unknown", "unknown")))
}

func TestRecordGatewayRequest(t *testing.T) {
	before := testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues("GET", "2xx"))

	RecordGatewayRequest("GET", "2xx", 120*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues("GET", "2xx")))
}

func TestRecordErrorCountsByCodeAndSeverity(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("E210", "high"))

	RecordError("E210", "high")

	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("E210", "high")))
}

func TestRecordBreakerStateMapsToGauge(t *testing.T) {
	RecordBreakerState("reward_settings", "open")
	assert.Equal(t, float64(2), testutil.ToFloat64(breakerState.WithLabelValues("reward_settings")))

	RecordBreakerState("reward_settings", "half_open")
	assert.Equal(t, float64(1), testutil.ToFloat64(breakerState.WithLabelValues("reward_settings")))

	RecordBreakerState("reward_settings", "closed")
	assert.Equal(t, float64(0), testutil.ToFloat64(breakerState.WithLabelValues("reward_settings")))
}

func TestRecordRewardEventCounts(t *testing.T) {
	before := testutil.ToFloat64(rewardEventsTotal.WithLabelValues("referral_new_user", "ok"))

	RecordRewardEvent("referral_new_user", "ok")

	assert.Equal(t, before+1, testutil.ToFloat64(rewardEventsTotal.WithLabelValues("referral_new_user", "ok")))
}

func TestRecordToastCounts(t *testing.T) {
	before := testutil.ToFloat64(toastsTotal.WithLabelValues("error"))

	RecordToast("error")

	assert.Equal(t, before+1, testutil.ToFloat64(toastsTotal.WithLabelValues("error")))
}
