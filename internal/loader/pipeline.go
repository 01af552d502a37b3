package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// Loader is the per-table entry point the pipeline drives.
// *TableLoader satisfies it.
type Loader interface {
	Load(ctx context.Context, sourceDir string, spec dsload.TableSpec) dsload.RunRecord
}

// Pipeline runs every configured table through the loader in order. A
// failed table is recorded and logged but never stops the tables after
// it; only context cancellation ends a run early.
type Pipeline struct {
	loader    Loader
	logger    dsload.Logger
	cfg       dsload.PipelineConfig
	sourceDir string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a Pipeline. Panics if loader or logger is nil.
func NewPipeline(l Loader, logger dsload.Logger, cfg dsload.PipelineConfig, sourceDir string) *Pipeline {
	if l == nil {
		panic("loader: pipeline loader cannot be nil")
	}
	if logger == nil {
		panic("loader: pipeline logger cannot be nil")
	}
	return &Pipeline{
		loader:    l,
		logger:    logger,
		cfg:       cfg,
		sourceDir: sourceDir,
		sleep:     sleepContext,
	}
}

// Run executes the configured run and returns one record per attempted
// table. The error is non-nil only when the context ended the run;
// per-table failures are reported through the records.
func (p *Pipeline) Run(ctx context.Context) ([]dsload.RunRecord, error) {
	if p.cfg.StartupDelay > 0 {
		p.logger.Info("waiting %s before loading", p.cfg.StartupDelay)
		if err := p.sleep(ctx, p.cfg.StartupDelay); err != nil {
			return nil, err
		}
	}

	records := make([]dsload.RunRecord, 0, len(p.cfg.Tables))
	for _, spec := range p.cfg.Tables {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("run interrupted before %s: %w", spec.Name, err)
		}

		p.logger.Info("loading %s from %s", spec.Name, spec.File)
		rec := p.loader.Load(ctx, p.sourceDir, spec)
		records = append(records, rec)

		if rec.Failed() {
			p.logger.Error("table %s failed, continuing with remaining tables", spec.Name)
		}
	}
	return records, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
