// Package pipeline sequences the scrape run: fetch, extract, persist.
package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/openkiosk/priceboard/internal/config"
	"github.com/openkiosk/priceboard/internal/extract"
	"github.com/openkiosk/priceboard/internal/fetcher"
	"github.com/openkiosk/priceboard/internal/store"
)

// Result summarizes one completed run.
type Result struct {
	Extracted int `json:"extracted"`
	Inserted  int `json:"inserted"`
	Sentinels int `json:"sentinels"`
}

// Pipeline orchestrates one scrape run at a time. The scheduled trigger and
// the manual HTTP trigger share a single instance; the in-progress gate
// serializes them by letting the later caller no-op.
type Pipeline struct {
	fetcher   fetcher.Fetcher
	store     store.Store
	url       string
	selectors extract.Selectors

	running atomic.Bool
}

// New creates a Pipeline wired to the configured scrape target.
func New(f fetcher.Fetcher, st store.Store, cfg config.ScrapeConfig) *Pipeline {
	return &Pipeline{
		fetcher: f,
		store:   st,
		url:     cfg.URL,
		selectors: extract.Selectors{
			Fact:        cfg.FactSelector,
			Figure:      cfg.FigureSelector,
			Description: cfg.DescriptionSelector,
			Quote:       cfg.QuoteSelector,
		},
	}
}

// RunOnce executes fetch, extract and persist in sequence. Each stage
// failure is logged with the stage name and returned as a *StageError;
// nothing here terminates the process or the schedule. Rows the store
// committed before a failure stay committed.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Result{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	log := zap.L().With(zap.String("component", "pipeline"), zap.String("url", p.url))
	log.Info("pipeline: starting run")

	markup, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		stageErr := &StageError{Stage: StageFetch, Err: err}
		log.Error("pipeline: run failed", zap.String("stage", string(StageFetch)), zap.Error(err))
		return Result{}, stageErr
	}

	facts, err := extract.Extract(markup, p.selectors)
	if err != nil {
		stageErr := &StageError{Stage: StageExtract, Err: err}
		log.Error("pipeline: run failed", zap.String("stage", string(StageExtract)), zap.Error(err))
		return Result{}, stageErr
	}

	inserted, err := p.store.InsertPriceFacts(ctx, facts)
	if err != nil {
		stageErr := &StageError{Stage: StagePersist, Err: err}
		log.Error("pipeline: run failed", zap.String("stage", string(StagePersist)), zap.Error(err))
		return Result{}, stageErr
	}

	result := Result{
		Extracted: len(facts),
		Inserted:  inserted,
		Sentinels: extract.SentinelCount(facts),
	}
	log.Info("pipeline: run complete",
		zap.Int("extracted", result.Extracted),
		zap.Int("inserted", result.Inserted),
		zap.Int("sentinel_figures", result.Sentinels),
	)
	return result, nil
}
