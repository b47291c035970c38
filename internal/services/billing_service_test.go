package services

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/core"
	"github.com/on3oleg/utihome/internal/storage"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func newTestBillingService(t *testing.T) (*BillingService, int64) {
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

	return NewBillingService(repo, nil), prop.ID
}

func TestCommit_PersistsBillAndAdvancesReadings(t *testing.T) {
	svc, propID := newTestBillingService(t)
	ctx := context.Background()

	if _, err := svc.UpdateRates(ctx, propID, RatesUpdate{
		ElectricityRate: dec(t, "4.32"),
		WaterRate:       dec(t, "20.47"),
		GasRate:         dec(t, "7.95"),
		WaterFixedFee:   dec(t, "5.38"),
		GasFixedFee:     dec(t, "289.04"),
	}); err != nil {
		t.Fatalf("UpdateRates: %v", err)
	}
	if _, err := svc.UpdateReadings(ctx, propID, core.StandardReadings{
		Electricity: dec(t, "18329"),
		Water:       dec(t, "1224"),
		Gas:         dec(t, "12994"),
	}); err != nil {
		t.Fatalf("UpdateReadings: %v", err)
	}

	bill, err := svc.Commit(ctx, propID, core.EnteredValues{
		Electricity: "18429",
		Water:       "1230",
		Gas:         "13000",
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if bill == nil {
		t.Fatal("Commit returned nil bill for a non-empty cycle")
	}
	if !bill.TotalCost.Equal(dec(t, "896.94")) {
		t.Errorf("TotalCost = %s, want 896.94", bill.TotalCost)
	}

	history, err := svc.History(ctx, propID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("History returned %d bills, want 1", len(history))
	}

	cfg, err := svc.TariffConfig(ctx, propID)
	if err != nil {
		t.Fatalf("TariffConfig: %v", err)
	}
	if !cfg.LastReadings.Electricity.Equal(dec(t, "18429")) {
		t.Errorf("electricity baseline = %s, want 18429", cfg.LastReadings.Electricity)
	}
	if !cfg.LastReadings.Water.Equal(dec(t, "1230")) {
		t.Errorf("water baseline = %s, want 1230", cfg.LastReadings.Water)
	}
}

func TestCommit_EmptyCycleIsNoOp(t *testing.T) {
	svc, propID := newTestBillingService(t)
	ctx := context.Background()

	// Default config: zero rates and fees, so an empty form totals zero.
	bill, err := svc.Commit(ctx, propID, core.EnteredValues{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if bill != nil {
		t.Errorf("Commit returned bill %+v, want nil no-op", bill)
	}

	history, err := svc.History(ctx, propID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("History returned %d bills after no-op commit, want 0", len(history))
	}
}

func TestRenameBill_OwnershipEnforced(t *testing.T) {
	svc, propID := newTestBillingService(t)
	ctx := context.Background()

	if _, err := svc.UpdateRates(ctx, propID, RatesUpdate{
		ElectricityRate: dec(t, "1"),
	}); err != nil {
		t.Fatalf("UpdateRates: %v", err)
	}
	bill, err := svc.Commit(ctx, propID, core.EnteredValues{Electricity: "100"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	billID := mustParseID(t, bill.ID)

	otherProp, err := svc.CreateProperty(ctx, 1, "Garage", "")
	if err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}

	if err := svc.RenameBill(ctx, otherProp.ID, billID, "stolen"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("renaming another property's bill: err = %v, want ErrNotFound", err)
	}

	if err := svc.RenameBill(ctx, propID, billID, "January utilities"); err != nil {
		t.Fatalf("RenameBill: %v", err)
	}
	history, err := svc.History(ctx, propID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history[0].Name != "January utilities" {
		t.Errorf("bill name = %q, want %q", history[0].Name, "January utilities")
	}
}

func TestCustomFieldLifecycle(t *testing.T) {
	svc, propID := newTestBillingService(t)
	ctx := context.Background()

	field, err := svc.AddCustomField(ctx, propID, "Heating", "rate", "Gcal", dec(t, "1654.41"), dec(t, "10"))
	if err != nil {
		t.Fatalf("AddCustomField: %v", err)
	}

	cfg, err := svc.TariffConfig(ctx, propID)
	if err != nil {
		t.Fatalf("TariffConfig: %v", err)
	}
	if _, ok := cfg.CustomField(field.ID); !ok {
		t.Fatal("custom field not persisted")
	}
	if !cfg.CustomReadings[field.ID].Equal(dec(t, "10")) {
		t.Errorf("seeded reading = %s, want 10", cfg.CustomReadings[field.ID])
	}

	if err := svc.UpdateCustomFieldPrice(ctx, propID, field.ID, dec(t, "1700")); err != nil {
		t.Fatalf("UpdateCustomFieldPrice: %v", err)
	}
	cfg, _ = svc.TariffConfig(ctx, propID)
	got, _ := cfg.CustomField(field.ID)
	if !got.Price.Equal(dec(t, "1700")) {
		t.Errorf("price after update = %s, want 1700", got.Price)
	}

	if err := svc.RemoveCustomField(ctx, propID, field.ID); err != nil {
		t.Fatalf("RemoveCustomField: %v", err)
	}
	cfg, _ = svc.TariffConfig(ctx, propID)
	if _, ok := cfg.CustomField(field.ID); ok {
		t.Error("custom field still present after removal")
	}

	if err := svc.RemoveCustomField(ctx, propID, field.ID); !errors.Is(err, core.ErrFieldNotFound) {
		t.Errorf("removing twice: err = %v, want ErrFieldNotFound", err)
	}
}

func mustParseID(t *testing.T, id string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		t.Fatalf("bill id %q is not numeric: %v", id, err)
	}
	return n
}
