package goPairAuth

import (
	"context"
	"testing"
	"time"
)

// Per-operation counter/histogram writes, matching what the engine records.
var (
	validateMetricMix = []MetricID{MetricValidateSuccess}
	refreshMetricMix  = []MetricID{MetricSessionRevoked, MetricRefreshSuccess, MetricSessionCreated}
)

const benchPassword = "correct-password-123"

func newBenchmarkEnv(b *testing.B) (*testEnv, TokenPair) {
	b.Helper()
	env := newTestEnv(b, func(c *Config) {
		c.JWT.AccessTTL = 10 * time.Minute
		c.JWT.RefreshTTL = 10 * time.Minute
		c.Metrics.Enabled = false
		c.Audit.Enabled = false
	})
	pair := env.register(b, "alice", benchPassword)
	return env, pair
}

func BenchmarkValidateAccess(b *testing.B) {
	env, pair := newBenchmarkEnv(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.ValidateAccess(pair.Access); err != nil {
			b.Fatalf("validate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticate(b *testing.B) {
	env, pair := newBenchmarkEnv(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := env.engine.Authenticate(ctx, pair.Access); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	env, pair := newBenchmarkEnv(b)
	ctx := context.Background()
	refresh := pair.Refresh

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := env.engine.Refresh(ctx, refresh)
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
		refresh = next.Refresh
	}
}

func BenchmarkLogin(b *testing.B) {
	env, _ := newBenchmarkEnv(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pair, err := env.engine.Login(ctx, "alice", benchPassword)
		if err != nil {
			b.Fatalf("login failed: %v", err)
		}
		_ = env.engine.LogoutCurrentDevice(ctx, pair.Access)
	}
}

func BenchmarkMetricsValidatePath(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			for _, id := range validateMetricMix {
				m.Inc(id)
			}
			m.Observe(MetricValidateLatency, 3*time.Millisecond)
		}
	})
}

func BenchmarkMetricsRefreshPath(b *testing.B) {
	for _, tc := range []struct {
		name string
		cfg  MetricsConfig
	}{
		{"disabled", MetricsConfig{}},
		{"counters", MetricsConfig{Enabled: true}},
		{"histograms", MetricsConfig{Enabled: true, EnableLatencyHistograms: true}},
	} {
		b.Run(tc.name, func(b *testing.B) {
			m := NewMetrics(tc.cfg)
			b.ReportAllocs()
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				d := time.Millisecond
				for pb.Next() {
					for _, id := range refreshMetricMix {
						m.Inc(id)
					}
					if m.LatencyEnabled() {
						m.Observe(MetricRefreshLatency, d)
					}
					// Walk every bucket so no single slot stays hot.
					d = (d * 3) % time.Second
				}
			})
		})
	}
}

// BenchmarkMetricsSnapshotUnderLoad measures a scrape while refreshes keep
// writing, which is what the exporters do on every collection.
func BenchmarkMetricsSnapshotUnderLoad(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				for _, id := range refreshMetricMix {
					m.Inc(id)
				}
				m.Observe(MetricRefreshLatency, 7*time.Millisecond)
			}
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap := m.Snapshot()
		if len(snap.Histograms[MetricRefreshLatency]) != histBucketCount {
			b.Fatalf("unexpected bucket count %d", len(snap.Histograms[MetricRefreshLatency]))
		}
	}
	b.StopTimer()
	close(stop)
	<-done
}
