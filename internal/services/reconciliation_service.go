package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"remit/internal/store"
)

// SweepMachine is the slice of the transaction state machine the sweeper
// drives.
type SweepMachine interface {
	ReverifyPending(ctx context.Context, id string) (store.Transaction, error)
	Expire(ctx context.Context, id, reason string) (bool, error)
}

type SweepStore interface {
	ListStalePending(ctx context.Context, before time.Time) ([]store.StalePending, error)
}

type SweepReport struct {
	Checked int `json:"checked"`
	Paid    int `json:"paid"`
	Failed  int `json:"failed"`
	Expired int `json:"expired"`
	Errors  int `json:"errors"`
}

// ReconciliationService periodically re-checks PENDING transactions the
// gateway never called back about. Automatic rails get re-verified against
// the gateway; anything still pending past the expiry window is failed.
type ReconciliationService struct {
	transactions SweepStore
	machine      SweepMachine
	verifyAfter  time.Duration
	expireAfter  time.Duration
	logger       zerolog.Logger
}

func NewReconciliationService(transactions SweepStore, machine SweepMachine, verifyAfter, expireAfter time.Duration, logger zerolog.Logger) *ReconciliationService {
	return &ReconciliationService{
		transactions: transactions,
		machine:      machine,
		verifyAfter:  verifyAfter,
		expireAfter:  expireAfter,
		logger:       logger,
	}
}

// Sweep processes one batch. Per-transaction errors are counted and logged,
// never propagated: one bad row must not starve the rest of the batch.
func (s *ReconciliationService) Sweep(ctx context.Context) (SweepReport, error) {
	now := time.Now()
	stale, err := s.transactions.ListStalePending(ctx, now.Add(-s.verifyAfter))
	if err != nil {
		return SweepReport{}, err
	}

	var (
		mu     sync.Mutex
		report SweepReport
	)
	report.Checked = len(stale)

	var g errgroup.Group
	g.SetLimit(4)
	for _, item := range stale {
		item := item
		g.Go(func() error {
			outcome, err := s.sweepOne(ctx, item, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors++
				s.logger.Warn().Err(err).Str("reference", item.Reference).Msg("sweep item failed")
				return nil
			}
			switch outcome {
			case StatusPaid:
				report.Paid++
			case StatusFailed:
				report.Failed++
			case "expired":
				report.Expired++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info().
		Int("checked", report.Checked).
		Int("paid", report.Paid).
		Int("failed", report.Failed).
		Int("expired", report.Expired).
		Int("errors", report.Errors).
		Msg("reconciliation sweep done")
	return report, nil
}

func (s *ReconciliationService) sweepOne(ctx context.Context, item store.StalePending, now time.Time) (string, error) {
	pastExpiry := now.Sub(item.CreatedAt) >= s.expireAfter

	if item.SenderAutomatic && item.GatewayTxID != "" {
		txn, err := s.machine.ReverifyPending(ctx, item.ID)
		if err != nil {
			if !errIsMismatch(err) {
				return "", err
			}
			return StatusFailed, nil
		}
		if txn.Status != StatusPending {
			return txn.Status, nil
		}
	}

	if !pastExpiry {
		return "", nil
	}
	reason := fmt.Sprintf("expired after %d minutes", int(s.expireAfter.Minutes()))
	expired, err := s.machine.Expire(ctx, item.ID, reason)
	if err != nil {
		return "", err
	}
	if expired {
		return "expired", nil
	}
	return "", nil
}

func errIsMismatch(err error) bool {
	return errors.Is(err, ErrVerificationMismatch)
}
