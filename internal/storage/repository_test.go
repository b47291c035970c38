package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "utihome.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestProperty(t *testing.T, repo *SQLiteRepository) Property {
	t.Helper()
	ctx := context.Background()
	user, err := repo.CreateUser(ctx, "owner@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	prop, err := repo.CreateProperty(ctx, user.ID, "Apartment", "")
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return prop
}

func TestUserUniqueEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "a@b.c", "h1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateUser(ctx, "a@b.c", "h2"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}

	u, err := repo.UserByEmail(ctx, "a@b.c")
	if err != nil {
		t.Fatal(err)
	}
	if u.PasswordHash != "h1" {
		t.Fatalf("hash = %q, want h1", u.PasswordHash)
	}

	if _, err := repo.UserByEmail(ctx, "missing@b.c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTariffConfigDefaultAndRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	prop := newTestProperty(t, repo)

	// Nothing stored yet: blank slate, not an error.
	cfg, err := repo.TariffConfig(ctx, prop.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ElectricityRate.IsZero() || len(cfg.CustomFields) != 0 {
		t.Fatalf("default config not blank: %+v", cfg)
	}

	cfg.ElectricityRate = decimal.RequireFromString("4.32")
	cfg.GasFixedFee = decimal.RequireFromString("289.04")
	heating, err := cfg.AddCustomField("Heating", core.FieldRate, "Gcal", decimal.RequireFromString("1654.41"), decimal.NewFromInt(7))
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.SaveTariffConfig(ctx, prop.ID, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := repo.TariffConfig(ctx, prop.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.ElectricityRate.Equal(cfg.ElectricityRate) {
		t.Errorf("rate = %s, want %s", got.ElectricityRate, cfg.ElectricityRate)
	}
	if r, ok := got.CustomReadings[heating.ID]; !ok || !r.Equal(decimal.NewFromInt(7)) {
		t.Errorf("custom reading = %s (present=%v), want 7", r, ok)
	}

	// Saves replace the document wholesale.
	cfg.ElectricityRate = decimal.RequireFromString("5.00")
	if err := repo.SaveTariffConfig(ctx, prop.ID, cfg); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.TariffConfig(ctx, prop.ID)
	if !got.ElectricityRate.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("rate after resave = %s, want 5.00", got.ElectricityRate)
	}
}

func TestCommitBillWritesBothArtifacts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	prop := newTestProperty(t, repo)

	cfg := core.DefaultTariffConfig()
	cfg.ElectricityRate = decimal.RequireFromString("4.32")
	if err := repo.SaveTariffConfig(ctx, prop.ID, cfg); err != nil {
		t.Fatal(err)
	}

	p := core.Calculate(cfg, core.EnteredValues{Electricity: "100"})
	bill := core.NewBillRecord(p, time.Now())
	advanced := core.AdvanceReadings(cfg, core.EnteredValues{Electricity: "100"})

	saved, err := repo.CommitBill(ctx, prop.ID, bill, advanced)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" {
		t.Fatal("bill id not assigned")
	}

	bills, err := repo.ListBills(ctx, prop.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 1 {
		t.Fatalf("bills = %d, want 1", len(bills))
	}
	if !bills[0].TotalCost.Equal(decimal.RequireFromString("432")) {
		t.Errorf("total = %s, want 432", bills[0].TotalCost)
	}

	got, err := repo.TariffConfig(ctx, prop.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastReadings.Electricity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("advanced reading = %s, want 100", got.LastReadings.Electricity)
	}
}

func TestListBillsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	prop := newTestProperty(t, repo)

	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		bill := core.BillRecord{Date: base.AddDate(0, i, 0)}
		if _, err := repo.AppendBill(ctx, prop.ID, bill); err != nil {
			t.Fatal(err)
		}
	}

	bills, err := repo.ListBills(ctx, prop.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 3 {
		t.Fatalf("bills = %d, want 3", len(bills))
	}
	for i := 1; i < len(bills); i++ {
		if bills[i].Date.After(bills[i-1].Date) {
			t.Fatalf("bills not newest-first: %v", bills)
		}
	}
}

func TestRenameBill(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	prop := newTestProperty(t, repo)

	p := core.Calculate(core.DefaultTariffConfig(), core.EnteredValues{})
	bill := core.NewBillRecord(p, time.Now())
	bill.TotalCost = decimal.RequireFromString("10")
	saved, err := repo.AppendBill(ctx, prop.ID, bill)
	if err != nil {
		t.Fatal(err)
	}

	billID, err := strconv.ParseInt(saved.ID, 10, 64)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.RenameBill(ctx, billID, "January"); err != nil {
		t.Fatal(err)
	}

	got, _, err := repo.Bill(ctx, billID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "January" {
		t.Errorf("name = %q, want January", got.Name)
	}
	// Rename must not touch cost fields.
	if !got.TotalCost.Equal(bill.TotalCost) {
		t.Errorf("total changed by rename: %s", got.TotalCost)
	}

	if err := repo.RenameBill(ctx, 9999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExportBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	prop := newTestProperty(t, repo)

	saved, err := repo.AppendBill(ctx, prop.ID, core.BillRecord{Date: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	billID, err := strconv.ParseInt(saved.ID, 10, 64)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := repo.PendingExportBills(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != billID {
		t.Fatalf("pending = %+v, want bill %d", pending, billID)
	}

	if err := repo.MarkExported(ctx, billID); err != nil {
		t.Fatal(err)
	}
	pending, _ = repo.PendingExportBills(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending after export = %+v, want none", pending)
	}
}
