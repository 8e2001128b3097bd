package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rickgao/polywhales/internal/model"
)

func TestSweepMetrics(t *testing.T) {
	m := New("")

	m.WalletFinished("done", 1, 10*time.Millisecond)
	m.WalletFinished("done", 2, 10*time.Millisecond)
	m.WalletFinished("skipped", 1, time.Millisecond)
	m.SweepFinished(model.SweepStats{Processed: 2, Skipped: 1, NewActivities: 3, FailedTrades: 1}, time.Second)
	m.SweepRejected("in_progress")

	if got := testutil.ToFloat64(m.WalletsTotal.WithLabelValues("done")); got != 2 {
		t.Errorf("wallets_total{done} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WalletsTotal.WithLabelValues("skipped")); got != 1 {
		t.Errorf("wallets_total{skipped} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActivitiesTotal); got != 3 {
		t.Errorf("activities_recorded_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.FailedTradesTotal); got != 1 {
		t.Errorf("failed_trades_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SweepsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("runs_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SweepsTotal.WithLabelValues("in_progress")); got != 1 {
		t.Errorf("runs_total{in_progress} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastSweep); got == 0 {
		t.Error("last_completed_timestamp_seconds not set")
	}
}

func TestSurfaceMetrics(t *testing.T) {
	m := New("test")

	m.HTTPRequest("/health", "200")
	m.BotCommand("/track")
	m.BotCommand("/track")
	m.AlertDelivered(2, 1)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/health", "200")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BotCommands.WithLabelValues("/track")); got != 2 {
		t.Errorf("commands_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AlertsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("alerts_total{failed} = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.WalletFinished("done", 1, time.Second)
	m.SweepFinished(model.SweepStats{}, time.Second)
	m.SweepRejected("error")
	m.AlertDelivered(1, 0)
	m.HTTPRequest("/", "200")
	m.BotCommand("/help")
	m.RegisterQueue("", func() QueueStats { return QueueStats{} })
	if m.Registry() != nil {
		t.Error("nil Metrics should have no registry")
	}
}

func TestHandlerExposesQueueGauges(t *testing.T) {
	m := New("")
	m.RegisterQueue("", func() QueueStats {
		return QueueStats{Pending: 4, Capacity: 64, Dropped: 2}
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		"polywhales_notify_queue_pending 4",
		"polywhales_notify_queue_capacity 64",
		"polywhales_notify_queue_dropped_total 2",
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
