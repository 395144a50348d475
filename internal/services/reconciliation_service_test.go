package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"remit/internal/store"
)

func stalePending(id string, age time.Duration, automatic bool, gatewayTxID string) store.StalePending {
	return store.StalePending{
		Transaction: store.Transaction{
			ID:          id,
			Reference:   "RMT-" + id,
			Status:      StatusPending,
			GatewayTxID: gatewayTxID,
			CreatedAt:   time.Now().Add(-age),
		},
		SenderAutomatic: automatic,
	}
}

func TestSweepExpiresStaleManualTransfers(t *testing.T) {
	transactions := stubSweepStore{
		listFn: func(context.Context, time.Time) ([]store.StalePending, error) {
			return []store.StalePending{stalePending("tx-old", 31*time.Minute, false, "")}, nil
		},
	}
	machine := &stubSweepMachine{
		reverifyFn: func(context.Context, string) (store.Transaction, error) {
			t.Fatalf("a manual-rail transfer must not be re-verified")
			return store.Transaction{}, nil
		},
		expireFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	service := NewReconciliationService(transactions, machine, 10*time.Minute, 30*time.Minute, zerolog.Nop())

	report, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.Checked != 1 || report.Expired != 1 {
		t.Fatalf("expected one checked and one expired, got %+v", report)
	}
	if len(machine.expireCalls) != 1 || machine.expireCalls[0] != "expired after 30 minutes" {
		t.Fatalf("unexpected expiry reason: %v", machine.expireCalls)
	}
}

func TestSweepReverifiesAutomaticBeforeExpiry(t *testing.T) {
	transactions := stubSweepStore{
		listFn: func(context.Context, time.Time) ([]store.StalePending, error) {
			return []store.StalePending{stalePending("tx-auto", 15*time.Minute, true, "flw-9")}, nil
		},
	}
	machine := &stubSweepMachine{
		reverifyFn: func(_ context.Context, id string) (store.Transaction, error) {
			return store.Transaction{ID: id, Status: StatusPaid}, nil
		},
		expireFn: func(context.Context, string, string) (bool, error) {
			t.Fatalf("a transfer inside the expiry window must not be expired")
			return false, nil
		},
	}
	service := NewReconciliationService(transactions, machine, 10*time.Minute, 30*time.Minute, zerolog.Nop())

	report, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.Paid != 1 {
		t.Fatalf("expected one paid, got %+v", report)
	}
	if len(machine.reverified) != 1 || machine.reverified[0] != "tx-auto" {
		t.Fatalf("expected tx-auto re-verified, got %v", machine.reverified)
	}
}

func TestSweepStillPendingPastExpiryIsExpired(t *testing.T) {
	transactions := stubSweepStore{
		listFn: func(context.Context, time.Time) ([]store.StalePending, error) {
			return []store.StalePending{stalePending("tx-dead", 45*time.Minute, true, "flw-7")}, nil
		},
	}
	machine := &stubSweepMachine{
		reverifyFn: func(_ context.Context, id string) (store.Transaction, error) {
			return store.Transaction{ID: id, Status: StatusPending}, nil
		},
		expireFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	service := NewReconciliationService(transactions, machine, 10*time.Minute, 30*time.Minute, zerolog.Nop())

	report, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.Expired != 1 || report.Paid != 0 {
		t.Fatalf("expected re-verified then expired, got %+v", report)
	}
	if len(machine.reverified) != 1 || len(machine.expired) != 1 {
		t.Fatalf("expected both calls, got reverified=%v expired=%v", machine.reverified, machine.expired)
	}
}

func TestSweepMismatchCountsAsFailed(t *testing.T) {
	transactions := stubSweepStore{
		listFn: func(context.Context, time.Time) ([]store.StalePending, error) {
			return []store.StalePending{stalePending("tx-bad", 15*time.Minute, true, "flw-3")}, nil
		},
	}
	machine := &stubSweepMachine{
		reverifyFn: func(context.Context, string) (store.Transaction, error) {
			return store.Transaction{}, ErrVerificationMismatch
		},
	}
	service := NewReconciliationService(transactions, machine, 10*time.Minute, 30*time.Minute, zerolog.Nop())

	report, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.Failed != 1 || report.Errors != 0 {
		t.Fatalf("expected mismatch counted as failed, got %+v", report)
	}
}

func TestSweepIsolatesPerItemErrors(t *testing.T) {
	transactions := stubSweepStore{
		listFn: func(context.Context, time.Time) ([]store.StalePending, error) {
			return []store.StalePending{
				stalePending("tx-err", 15*time.Minute, true, "flw-1"),
				stalePending("tx-ok", 15*time.Minute, true, "flw-2"),
			}, nil
		},
	}
	machine := &stubSweepMachine{
		reverifyFn: func(_ context.Context, id string) (store.Transaction, error) {
			if id == "tx-err" {
				return store.Transaction{}, errors.New("gateway exploded")
			}
			return store.Transaction{ID: id, Status: StatusPaid}, nil
		},
	}
	service := NewReconciliationService(transactions, machine, 10*time.Minute, 30*time.Minute, zerolog.Nop())

	report, err := service.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep must not propagate per-item errors: %v", err)
	}
	if report.Errors != 1 || report.Paid != 1 || report.Checked != 2 {
		t.Fatalf("expected one error and one paid, got %+v", report)
	}
}
