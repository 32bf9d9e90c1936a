// Package ingest orchestrates bulk bill ingestion runs: per-bill upserts,
// attached texts, sponsors and amendments, automatic scoring, and sync run
// bookkeeping.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/policypulse/policypulse/internal/model"
	"github.com/policypulse/policypulse/internal/scoring"
	"github.com/policypulse/policypulse/internal/storage"
	"github.com/policypulse/policypulse/internal/telemetry"
)

// Service runs ingestion batches against the storage layer.
type Service struct {
	db          *storage.DB
	scorer      *scoring.Scorer
	logger      *slog.Logger
	concurrency int
	threshold   int

	billsProcessed metric.Int64Counter
	billDuration   metric.Float64Histogram
}

// New builds an ingestion service. concurrency bounds how many bills are
// processed in parallel within one run; threshold is the fallback relevance
// score for notification flagging when no alert preferences are active.
func New(db *storage.DB, scorer *scoring.Scorer, logger *slog.Logger, concurrency, threshold int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	s := &Service{
		db:          db,
		scorer:      scorer,
		logger:      logger,
		concurrency: concurrency,
		threshold:   threshold,
	}
	s.initMetrics()
	return s
}

// Run ingests a batch of bills under one sync run. Bills are processed
// concurrently; a failure on one bill is recorded against the run and does
// not stop the others. The run finishes as completed when every bill
// succeeded, failed when every bill failed, and partial otherwise.
func (s *Service) Run(ctx context.Context, syncType string, bills []model.BillRecord) (model.SyncRun, []model.UpsertResult, error) {
	run, err := s.db.BeginSyncRun(ctx, syncType)
	if err != nil {
		return model.SyncRun{}, nil, err
	}
	s.logger.Info("ingest: run started",
		"run_id", run.RunID, "sync_type", syncType, "bills", len(bills))

	var (
		mu      sync.Mutex
		results = make([]model.UpsertResult, len(bills))
		ok      = make([]bool, len(bills))
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rec := range bills {
		g.Go(func() error {
			res, err := s.ProcessBill(gctx, rec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Error("ingest: bill failed",
					"run_id", run.RunID, "bill_number", rec.BillNumber, "error", err)
				if rerr := s.db.RecordSyncError(ctx, run.ID, "bill_processing", err.Error(), ""); rerr != nil {
					s.logger.Error("ingest: record sync error failed", "run_id", run.RunID, "error", rerr)
				}
				return nil
			}
			results[i] = res
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var newBills, updated int
	out := make([]model.UpsertResult, 0, len(bills))
	for i, r := range results {
		if !ok[i] {
			continue
		}
		out = append(out, r)
		if r.Created {
			newBills++
		} else if r.Changed {
			updated++
		}
	}

	status := model.SyncStatusCompleted
	switch {
	case failed == len(bills) && len(bills) > 0:
		status = model.SyncStatusFailed
	case failed > 0:
		status = model.SyncStatusPartial
	}

	var runErrors map[string]any
	if failed > 0 {
		runErrors = map[string]any{"failed_bills": failed}
	}
	run, err = s.db.CompleteSyncRun(ctx, run.ID, status, newBills, updated, runErrors)
	if err != nil {
		return model.SyncRun{}, out, err
	}
	s.logger.Info("ingest: run finished",
		"run_id", run.RunID, "status", run.Status,
		"new_bills", newBills, "bills_updated", updated, "failed", failed)
	return run, out, nil
}

// ProcessBill upserts one bill with its attachments and refreshes its
// automatic scores. The upsert itself is retried on transient conflicts.
// Attachments and scores are only touched when the bill's content actually
// changed, so an unchanged re-sync stays a cheap no-op.
func (s *Service) ProcessBill(ctx context.Context, rec model.BillRecord) (model.UpsertResult, error) {
	start := time.Now()

	hash := ChangeHash(rec)
	var res model.UpsertResult
	err := storage.WithRetry(ctx, 3, 50*time.Millisecond, func() error {
		var err error
		res, err = s.db.UpsertLegislation(ctx, rec, hash)
		return err
	})
	if err != nil {
		s.recordBill(ctx, time.Since(start), "error")
		return model.UpsertResult{}, err
	}

	if res.Changed {
		if err := s.applyAttachments(ctx, res.LegislationID, rec); err != nil {
			s.recordBill(ctx, time.Since(start), "error")
			return model.UpsertResult{}, err
		}
		if err := s.applyScores(ctx, res.LegislationID, rec); err != nil {
			s.recordBill(ctx, time.Since(start), "error")
			return model.UpsertResult{}, err
		}
	}

	outcome := "unchanged"
	if res.Created {
		outcome = "created"
	} else if res.Changed {
		outcome = "updated"
	}
	s.recordBill(ctx, time.Since(start), outcome)
	return res, nil
}

func (s *Service) applyAttachments(ctx context.Context, legislationID int64, rec model.BillRecord) error {
	for _, t := range rec.Texts {
		if _, err := s.db.CreateTextVersion(ctx, legislationID, t); err != nil {
			return fmt.Errorf("ingest: store text: %w", err)
		}
	}
	if len(rec.Sponsors) > 0 {
		if err := s.db.ReplaceSponsors(ctx, legislationID, rec.Sponsors); err != nil {
			return fmt.Errorf("ingest: store sponsors: %w", err)
		}
	}
	for _, a := range rec.Amendments {
		if _, _, err := s.db.UpsertAmendment(ctx, legislationID, a); err != nil {
			return fmt.Errorf("ingest: store amendment: %w", err)
		}
	}
	return nil
}

func (s *Service) applyScores(ctx context.Context, legislationID int64, rec model.BillRecord) error {
	scores := s.scorer.Score(rec.Title, rec.Description)
	p, err := s.db.UpsertAutoScores(ctx, legislationID, scores)
	if err != nil {
		return fmt.Errorf("ingest: store scores: %w", err)
	}
	if p.ManuallyReviewed {
		// Human review pins the row; the skipped write is expected.
		s.logger.Debug("ingest: scores skipped, bill manually reviewed",
			"legislation_id", legislationID)
	}
	if _, err := s.db.EvaluateNotification(ctx, legislationID, s.threshold); err != nil {
		return fmt.Errorf("ingest: evaluate notification: %w", err)
	}
	return nil
}

func (s *Service) initMetrics() {
	meter := telemetry.Meter("policypulse/ingest")
	var err error
	s.billsProcessed, err = meter.Int64Counter("policypulse.ingest.bills",
		metric.WithDescription("Bills processed by ingestion runs"))
	if err != nil {
		s.logger.Warn("ingest: bills counter init failed", "error", err)
	}
	s.billDuration, err = meter.Float64Histogram("policypulse.ingest.bill_duration",
		metric.WithDescription("Per-bill processing duration"),
		metric.WithUnit("s"))
	if err != nil {
		s.logger.Warn("ingest: duration histogram init failed", "error", err)
	}
}

func (s *Service) recordBill(ctx context.Context, d time.Duration, outcome string) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if s.billsProcessed != nil {
		s.billsProcessed.Add(ctx, 1, attrs)
	}
	if s.billDuration != nil {
		s.billDuration.Record(ctx, d.Seconds(), attrs)
	}
}
