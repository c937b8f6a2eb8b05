package toast

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowQueuesNotice(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	id := q.Show("Pesanan dibuat", "", time.Minute)

	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)
	assert.Equal(t, "Pesanan dibuat", active[0].Message)
	assert.Empty(t, active[0].Error)
}

func TestShowAppliesDefaultDuration(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	q.Show("halo", "", 0)

	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, DefaultDuration, active[0].Duration)
}

func TestRemoveDropsNotice(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	first := q.Show("satu", "", time.Minute)
	second := q.Show("dua", "", time.Minute)

	q.Remove(first)

	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, second, active[0].ID)
}

func TestNoticeExpiresOnItsOwn(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	q.Show("sebentar", "", 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(q.Active()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCloseDropsEverything(t *testing.T) {
	q := NewQueue()
	q.Show("satu", "", time.Minute)
	q.Show("dua", "", time.Minute)

	q.Close()

	assert.Empty(t, q.Active())
}

// noticeCount reads the notice counter for one kind from the default registry.
// Counters accumulate across tests, so callers compare before/after deltas.
func noticeCount(t *testing.T, kind string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "toasts_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == "kind" && pair.GetValue() == kind {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestShowCountsNoticesByKind(t *testing.T) {
	successBefore := noticeCount(t, "success")
	errorBefore := noticeCount(t, "error")

	q := NewQueue()
	defer q.Close()

	q.Show("Pesanan dibuat", "", time.Minute)
	q.Show("", "Gagal membuat wallet", time.Minute)

	assert.Equal(t, successBefore+1, noticeCount(t, "success"))
	assert.Equal(t, errorBefore+1, noticeCount(t, "error"))
}
