package worker

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/amqp"
	"github.com/on3oleg/utihome/internal/core"
	"github.com/on3oleg/utihome/internal/export/memory"
	"github.com/on3oleg/utihome/internal/storage"
)

func newTestSetup(t *testing.T) (*storage.SQLiteRepository, int64) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	user, err := repo.CreateUser(ctx, "owner@example.com", "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	prop, err := repo.CreateProperty(ctx, user.ID, "Apartment", "")
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return repo, prop.ID
}

func commitTestBill(t *testing.T, repo *storage.SQLiteRepository, propID int64) core.BillRecord {
	t.Helper()

	bill := core.BillRecord{
		Date:                   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Name:                   "March",
		ElectricityConsumption: decimal.NewFromInt(100),
		Breakdown: core.CostBreakdown{
			ElectricityCost: decimal.NewFromInt(432),
		},
		TotalCost: decimal.NewFromInt(432),
	}
	saved, err := repo.AppendBill(context.Background(), propID, bill)
	if err != nil {
		t.Fatalf("append bill: %v", err)
	}
	return saved
}

func TestHandleExportMessage_MarksExported(t *testing.T) {
	repo, propID := newTestSetup(t)
	store := memory.New()
	w := NewExportWorker(repo, store, 10)
	ctx := context.Background()

	saved := commitTestBill(t, repo, propID)

	msg := amqp.NewBillExportMessage(saved.ID, propID)
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("HandleExportMessage: %v", err)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("exported %d bills, want 1", len(entries))
	}
	if entries[0].Property != "Apartment" {
		t.Errorf("exported property = %q, want Apartment", entries[0].Property)
	}

	pending, err := repo.PendingExportBills(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExportBills: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d bills still pending after export, want 0", len(pending))
	}
}

func TestHandleExportMessage_BadBillID(t *testing.T) {
	repo, _ := newTestSetup(t)
	w := NewExportWorker(repo, memory.New(), 10)

	msg := amqp.NewBillExportMessage("not-a-number", 1)
	if err := w.HandleExportMessage(context.Background(), msg); err == nil {
		t.Error("expected error for non-numeric bill id")
	}
}

func TestProcessPendingBills_DrainsBacklog(t *testing.T) {
	repo, propID := newTestSetup(t)
	store := memory.New()
	w := NewExportWorker(repo, store, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		commitTestBill(t, repo, propID)
	}

	if err := w.ProcessPendingBills(ctx); err != nil {
		t.Fatalf("ProcessPendingBills: %v", err)
	}

	if got := len(store.Entries()); got != 3 {
		t.Errorf("exported %d bills, want 3", got)
	}
	pending, _ := repo.PendingExportBills(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("%d bills still pending, want 0", len(pending))
	}
}

func TestExportFailure_MarksErrorAndKeepsPending(t *testing.T) {
	repo, propID := newTestSetup(t)
	store := memory.New()
	store.FailWith = errors.New("sheet unavailable")
	w := NewExportWorker(repo, store, 10)
	ctx := context.Background()

	saved := commitTestBill(t, repo, propID)
	billID, err := strconv.ParseInt(saved.ID, 10, 64)
	if err != nil {
		t.Fatalf("parse bill id: %v", err)
	}

	msg := amqp.NewBillExportMessage(saved.ID, propID)
	if err := w.HandleExportMessage(ctx, msg); err == nil {
		t.Fatal("expected export error")
	}

	// A failed export stays in the pending queue for the catch-up pass.
	pending, err := repo.PendingExportBills(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExportBills: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == billID {
			found = true
		}
	}
	if !found {
		t.Error("failed bill missing from pending queue")
	}

	// Once the writer recovers, the catch-up pass succeeds.
	store.FailWith = nil
	if err := w.ProcessPendingBills(ctx); err != nil {
		t.Fatalf("ProcessPendingBills: %v", err)
	}
	pending, _ = repo.PendingExportBills(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("%d bills still pending after recovery, want 0", len(pending))
	}
}
