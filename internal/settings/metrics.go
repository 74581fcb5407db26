package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"settings-lite/internal/tree"
)

// Instrument wraps b so every Read and Write is counted and timed under the
// given backend name. Metrics are registered in the default
// VictoriaMetrics set and exposed with metrics.WritePrometheus.
func Instrument(name string, b Backend) Backend {
	return &instrumented{
		next:      b,
		reads:     metrics.GetOrCreateCounter(fmt.Sprintf(`settings_backend_reads_total{backend=%q}`, name)),
		readErrs:  metrics.GetOrCreateCounter(fmt.Sprintf(`settings_backend_read_errors_total{backend=%q}`, name)),
		readTime:  metrics.GetOrCreateHistogram(fmt.Sprintf(`settings_backend_read_duration_seconds{backend=%q}`, name)),
		writes:    metrics.GetOrCreateCounter(fmt.Sprintf(`settings_backend_writes_total{backend=%q}`, name)),
		writeErrs: metrics.GetOrCreateCounter(fmt.Sprintf(`settings_backend_write_errors_total{backend=%q}`, name)),
		writeTime: metrics.GetOrCreateHistogram(fmt.Sprintf(`settings_backend_write_duration_seconds{backend=%q}`, name)),
	}
}

type instrumented struct {
	next Backend

	reads, readErrs   *metrics.Counter
	writes, writeErrs *metrics.Counter
	readTime          *metrics.Histogram
	writeTime         *metrics.Histogram
}

func (b *instrumented) Read(ctx context.Context) (*tree.Tree, error) {
	start := time.Now()
	t, err := b.next.Read(ctx)
	b.readTime.Update(time.Since(start).Seconds())
	b.reads.Inc()
	if err != nil {
		b.readErrs.Inc()
	}
	return t, err
}

func (b *instrumented) Write(ctx context.Context, data *tree.Tree) error {
	start := time.Now()
	err := b.next.Write(ctx, data)
	b.writeTime.Update(time.Since(start).Seconds())
	b.writes.Inc()
	if err != nil {
		b.writeErrs.Inc()
	}
	return err
}

// PruneEmptyAncestors forwards the wrapped backend's answer.
func (b *instrumented) PruneEmptyAncestors() bool {
	return prunes(b.next)
}
