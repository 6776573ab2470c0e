package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot goPairAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goPairAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestCollectorLintsClean(t *testing.T) {
	problems, err := testutil.CollectAndLint(NewCollector(fakeSource{}))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("lint problems: %+v", problems)
	}
}

func TestCollectorCountsWithoutHistograms(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: goPairAuth.MetricsSnapshot{
		Counters: map[goPairAuth.MetricID]uint64{goPairAuth.MetricLoginSuccess: 3},
	}})
	want := len(internaldefs.CounterDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d metrics, got %d", want, got)
	}
}

func TestCollectorValues(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goPairAuth.MetricsSnapshot{
			Counters: map[goPairAuth.MetricID]uint64{
				goPairAuth.MetricLoginSuccess:          7,
				goPairAuth.MetricRefreshReplayDetected: 2,
			},
			Histograms: map[goPairAuth.MetricID][]uint64{
				goPairAuth.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 4,
	})

	expected := `
# HELP pairauth_login_success_total Successful logins.
# TYPE pairauth_login_success_total counter
pairauth_login_success_total 7
# HELP pairauth_refresh_replay_detected_total Verified refresh tokens presented after redemption or revocation.
# TYPE pairauth_refresh_replay_detected_total counter
pairauth_refresh_replay_detected_total 2
# HELP pairauth_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE pairauth_audit_dropped_total counter
pairauth_audit_dropped_total 4
# HELP pairauth_validate_latency_seconds Access token validation latency.
# TYPE pairauth_validate_latency_seconds histogram
pairauth_validate_latency_seconds_bucket{le="0.005"} 1
pairauth_validate_latency_seconds_bucket{le="0.01"} 3
pairauth_validate_latency_seconds_bucket{le="0.025"} 6
pairauth_validate_latency_seconds_bucket{le="0.05"} 10
pairauth_validate_latency_seconds_bucket{le="0.1"} 15
pairauth_validate_latency_seconds_bucket{le="0.25"} 21
pairauth_validate_latency_seconds_bucket{le="0.5"} 28
pairauth_validate_latency_seconds_bucket{le="+Inf"} 36
pairauth_validate_latency_seconds_sum 0
pairauth_validate_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"pairauth_login_success_total",
		"pairauth_refresh_replay_detected_total",
		"pairauth_audit_dropped_total",
		"pairauth_validate_latency_seconds",
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry(fakeSource{snapshot: goPairAuth.MetricsSnapshot{
		Counters: map[goPairAuth.MetricID]uint64{goPairAuth.MetricLogoutAll: 5},
	}})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "pairauth_logout_all_total 5") {
		t.Fatalf("missing counter in output:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatal("expected runtime collector output")
	}
}

func TestRegistryRejectsDuplicateCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := fakeSource{}
	if err := reg.Register(NewCollector(src)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(NewCollector(src)); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollector(fakeSource{snapshot: goPairAuth.MetricsSnapshot{
		Counters: map[goPairAuth.MetricID]uint64{
			goPairAuth.MetricLoginSuccess:   1000,
			goPairAuth.MetricRefreshSuccess: 800,
		},
		Histograms: map[goPairAuth.MetricID][]uint64{
			goPairAuth.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
		},
	}})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(c)
	}
}
