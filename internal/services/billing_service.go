package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/amqp"
	"github.com/on3oleg/utihome/internal/core"
	"github.com/on3oleg/utihome/internal/storage"
)

// RatesUpdate carries new standard tariff values for a property. Changing a
// rate affects future bills only; committed bills keep their frozen costs.
type RatesUpdate struct {
	ElectricityRate decimal.Decimal
	WaterRate       decimal.Decimal
	GasRate         decimal.Decimal
	WaterFixedFee   decimal.Decimal
	GasFixedFee     decimal.Decimal
}

// BillingService orchestrates tariff and bill operations across SQLite and AMQP
type BillingService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewBillingService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *BillingService {
	return &BillingService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateProperty registers a new property for a user
func (s *BillingService) CreateProperty(ctx context.Context, userID int64, name, description string) (storage.Property, error) {
	return s.storage.CreateProperty(ctx, userID, name, description)
}

// ListProperties returns all properties owned by a user
func (s *BillingService) ListProperties(ctx context.Context, userID int64) ([]storage.Property, error) {
	return s.storage.ListProperties(ctx, userID)
}

// Property returns a property by id
func (s *BillingService) Property(ctx context.Context, id int64) (storage.Property, error) {
	return s.storage.Property(ctx, id)
}

// RenameProperty changes a property's display name
func (s *BillingService) RenameProperty(ctx context.Context, id int64, name string) error {
	return s.storage.RenameProperty(ctx, id, name)
}

// TariffConfig returns the current tariff configuration for a property
func (s *BillingService) TariffConfig(ctx context.Context, propertyID int64) (core.TariffConfig, error) {
	return s.storage.TariffConfig(ctx, propertyID)
}

// Preview computes consumption and costs for the entered readings without
// persisting anything.
func (s *BillingService) Preview(ctx context.Context, propertyID int64, in core.EnteredValues) (core.Preview, core.TariffConfig, error) {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return core.Preview{}, core.TariffConfig{}, fmt.Errorf("load tariff config: %w", err)
	}
	return core.Calculate(cfg, in), cfg, nil
}

// Commit freezes the current preview into a bill record and advances the
// stored baseline readings, atomically. A preview with nothing on it is a
// silent no-op and returns (nil, nil).
func (s *BillingService) Commit(ctx context.Context, propertyID int64, in core.EnteredValues) (*core.BillRecord, error) {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load tariff config: %w", err)
	}

	preview := core.Calculate(cfg, in)
	if !preview.Commitable() {
		slog.InfoContext(ctx, "Nothing to commit, skipping", "property_id", propertyID)
		return nil, nil
	}

	bill := core.NewBillRecord(preview, time.Now())
	advanced := core.AdvanceReadings(cfg, in)

	saved, err := s.storage.CommitBill(ctx, propertyID, bill, advanced)
	if err != nil {
		return nil, fmt.Errorf("commit bill: %w", err)
	}

	// Async export is best effort; the bill is already persisted locally.
	if err := s.publishExportMessage(ctx, saved.ID, propertyID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"bill_id", saved.ID, "error", err)
	}

	return &saved, nil
}

// UpdateRates replaces the standard rates and fixed fees for a property
func (s *BillingService) UpdateRates(ctx context.Context, propertyID int64, upd RatesUpdate) (core.TariffConfig, error) {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return core.TariffConfig{}, fmt.Errorf("load tariff config: %w", err)
	}

	cfg.ElectricityRate = upd.ElectricityRate
	cfg.WaterRate = upd.WaterRate
	cfg.GasRate = upd.GasRate
	cfg.WaterFixedFee = upd.WaterFixedFee
	cfg.GasFixedFee = upd.GasFixedFee

	if err := cfg.Validate(); err != nil {
		return core.TariffConfig{}, err
	}
	if err := s.storage.SaveTariffConfig(ctx, propertyID, cfg); err != nil {
		return core.TariffConfig{}, fmt.Errorf("save tariff config: %w", err)
	}
	return cfg, nil
}

// UpdateReadings replaces the stored baseline meter readings for a property.
// Used when onboarding a property whose meters did not start at zero.
func (s *BillingService) UpdateReadings(ctx context.Context, propertyID int64, readings core.StandardReadings) (core.TariffConfig, error) {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return core.TariffConfig{}, fmt.Errorf("load tariff config: %w", err)
	}

	cfg.LastReadings = readings
	if err := cfg.Validate(); err != nil {
		return core.TariffConfig{}, err
	}
	if err := s.storage.SaveTariffConfig(ctx, propertyID, cfg); err != nil {
		return core.TariffConfig{}, fmt.Errorf("save tariff config: %w", err)
	}
	return cfg, nil
}

// AddCustomField appends a user-defined billing field to the property's tariff
func (s *BillingService) AddCustomField(ctx context.Context, propertyID int64, name, fieldType, unit string, price, startReading decimal.Decimal) (core.CustomFieldConfig, error) {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return core.CustomFieldConfig{}, fmt.Errorf("load tariff config: %w", err)
	}

	field, err := cfg.AddCustomField(name, core.FieldType(fieldType), unit, price, startReading)
	if err != nil {
		return core.CustomFieldConfig{}, err
	}
	if err := s.storage.SaveTariffConfig(ctx, propertyID, cfg); err != nil {
		return core.CustomFieldConfig{}, fmt.Errorf("save tariff config: %w", err)
	}
	return field, nil
}

// UpdateCustomFieldPrice changes the unit price of a custom field. Historical
// bills are untouched.
func (s *BillingService) UpdateCustomFieldPrice(ctx context.Context, propertyID int64, fieldID string, price decimal.Decimal) error {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("load tariff config: %w", err)
	}

	found := false
	for i := range cfg.CustomFields {
		if cfg.CustomFields[i].ID == fieldID {
			cfg.CustomFields[i].Price = price
			found = true
			break
		}
	}
	if !found {
		return core.ErrFieldNotFound
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.storage.SaveTariffConfig(ctx, propertyID, cfg)
}

// RemoveCustomField deletes a custom field and its stored baseline reading
func (s *BillingService) RemoveCustomField(ctx context.Context, propertyID int64, fieldID string) error {
	cfg, err := s.storage.TariffConfig(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("load tariff config: %w", err)
	}

	if err := cfg.RemoveCustomField(fieldID); err != nil {
		return err
	}
	return s.storage.SaveTariffConfig(ctx, propertyID, cfg)
}

// History returns the property's bills, newest first
func (s *BillingService) History(ctx context.Context, propertyID int64) ([]core.BillRecord, error) {
	return s.storage.ListBills(ctx, propertyID)
}

// RenameBill changes a bill's display name after verifying it belongs to the
// property. Costs and consumption stay frozen.
func (s *BillingService) RenameBill(ctx context.Context, propertyID, billID int64, name string) error {
	_, owner, err := s.storage.Bill(ctx, billID)
	if err != nil {
		return err
	}
	if owner != propertyID {
		return storage.ErrNotFound
	}
	return s.storage.RenameBill(ctx, billID, name)
}

func (s *BillingService) publishExportMessage(ctx context.Context, billID string, propertyID int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return nil
	}
	if _, err := strconv.ParseInt(billID, 10, 64); err != nil {
		return fmt.Errorf("unexpected bill id %q: %w", billID, err)
	}
	return s.amqpClient.PublishBillExport(ctx, billID, propertyID)
}

// Close closes both storage and AMQP connections
func (s *BillingService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close billing service: %v", errs)
	}

	return nil
}
