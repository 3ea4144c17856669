package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	obs "github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/domain"
	"github.com/fairyhunter13/trendpulse/internal/observability"
)

// ScanPlan lists what one scan cycle visits.
type ScanPlan struct {
	Categories []string
	Languages  []domain.Language
	// Limit caps how many trends per category are archived. Zero keeps all.
	Limit int
}

// ScanSummary reports the outcome of one cycle.
type ScanSummary struct {
	Scanned  int
	Failed   int
	Archived int
}

// ScanService periodically discovers trends and archives them.
type ScanService struct {
	Trends    *TrendService
	Store     domain.TrendArchive
	Publisher domain.ScanPublisher
	Plan      ScanPlan
	Pause     time.Duration
	now       func() time.Time
}

// NewScanService constructs a ScanService. store and publisher may be nil.
func NewScanService(trends *TrendService, store domain.TrendArchive, publisher domain.ScanPublisher, plan ScanPlan, pause time.Duration) *ScanService {
	if len(plan.Languages) == 0 {
		plan.Languages = []domain.Language{domain.LanguageEN}
	}
	return &ScanService{Trends: trends, Store: store, Publisher: publisher, Plan: plan, Pause: pause, now: time.Now}
}

// RunOnce scans every planned category sequentially, pausing between them.
// A failing category is logged and counted; it never stops the cycle. The
// only error returned is the context's.
func (s *ScanService) RunOnce(ctx domain.Context) (ScanSummary, error) {
	lg := observability.LoggerFromContext(ctx)
	start := s.now()
	lg.Info("scan cycle starting", slog.Int("categories", len(s.Plan.Categories)), slog.Int("languages", len(s.Plan.Languages)))

	var sum ScanSummary
	first := true
	for _, lang := range s.Plan.Languages {
		for _, category := range s.Plan.Categories {
			if !first {
				if err := sleep(ctx, s.Pause); err != nil {
					return sum, err
				}
			}
			first = false

			scanCtx := observability.WithAttrs(ctx, slog.String("category", category), slog.String("language", string(lang)))
			n, err := s.scanCategory(scanCtx, category, lang)
			obs.RecordScan(category, err, n)
			sum.Scanned++
			if err != nil {
				if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
					return sum, ctx.Err()
				}
				sum.Failed++
				lg.Error("category scan failed", slog.String("category", category), slog.String("language", string(lang)), slog.Any("error", err))
				continue
			}
			sum.Archived += n
			lg.Info("category scanned", slog.String("category", category), slog.String("language", string(lang)), slog.Int("trends", n))
		}
	}

	obs.ScanCycleDuration.Observe(s.now().Sub(start).Seconds())
	lg.Info("scan cycle complete",
		slog.Int("scanned", sum.Scanned),
		slog.Int("failed", sum.Failed),
		slog.Int("archived", sum.Archived))
	return sum, nil
}

func (s *ScanService) scanCategory(ctx domain.Context, category string, lang domain.Language) (int, error) {
	trends, err := s.Trends.generate(ctx, category, lang)
	if err != nil {
		return 0, err
	}
	if s.Plan.Limit > 0 && len(trends) > s.Plan.Limit {
		trends = trends[:s.Plan.Limit]
	}
	scannedAt := s.now().UTC()

	if s.Store != nil && len(trends) > 0 {
		batch := make([]domain.ArchivedTrend, 0, len(trends))
		for _, t := range trends {
			batch = append(batch, domain.ArchivedTrend{Trend: t, Language: lang, ScannedAt: scannedAt})
		}
		if err := s.Store.SaveBatch(ctx, batch); err != nil {
			return 0, fmt.Errorf("op=usecase.scan.archive: %w", err)
		}
	}
	if s.Publisher != nil {
		ev := domain.ScanEvent{Category: category, Language: lang, TrendCount: len(trends), ScannedAt: scannedAt}
		if err := s.Publisher.PublishScan(ctx, ev); err != nil {
			return len(trends), fmt.Errorf("op=usecase.scan.publish: %w", err)
		}
	}
	return len(trends), nil
}

// Run scans once immediately and then every interval until ctx is done.
func (s *ScanService) Run(ctx domain.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: scan interval must be positive", domain.ErrInvalidArgument)
	}
	if _, err := s.RunOnce(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func sleep(ctx domain.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
