package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// FieldRate is a metered custom field: it has a unit, a per-unit
	// price and a rolling last reading.
	FieldRate FieldType = "rate"
	// FieldFee is a flat custom field charged every cycle. A fee with a
	// zero price is variable: its amount is entered at billing time.
	FieldFee FieldType = "fee"
)

type (
	FieldType string

	// CustomFieldConfig is a user-defined billing line item. The ID is
	// assigned at creation and never changes; bills reference it in
	// their historical snapshots.
	CustomFieldConfig struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Type  FieldType       `json:"type"`
		Unit  string          `json:"unit,omitempty"`
		Price decimal.Decimal `json:"price"`
	}

	// StandardReadings holds the last committed meter values for the
	// three built-in utilities.
	StandardReadings struct {
		Electricity decimal.Decimal `json:"electricity"`
		Water       decimal.Decimal `json:"water"`
		Gas         decimal.Decimal `json:"gas"`
	}

	// TariffConfig is the per-property billing configuration: rates,
	// fixed fees, custom fields and the rolling meter baselines.
	//
	// Readings are split in two: LastReadings is the fixed record for
	// the standard utilities, CustomReadings is keyed by rate-type
	// custom field id. Fee-type fields have no meter and never appear
	// in CustomReadings.
	TariffConfig struct {
		ElectricityRate decimal.Decimal            `json:"electricityRate"`
		WaterRate       decimal.Decimal            `json:"waterRate"`
		GasRate         decimal.Decimal            `json:"gasRate"`
		WaterFixedFee   decimal.Decimal            `json:"waterFixedFee"`
		GasFixedFee     decimal.Decimal            `json:"gasFixedFee"`
		CustomFields    []CustomFieldConfig        `json:"customFields"`
		LastReadings    StandardReadings           `json:"lastReadings"`
		CustomReadings  map[string]decimal.Decimal `json:"customReadings"`
	}
)

var (
	ErrEmptyFieldName   = errors.New("empty field name")
	ErrInvalidFieldType = errors.New("invalid field type")
	ErrMissingUnit      = errors.New("rate field requires a unit")
	ErrNegativePrice    = errors.New("negative price")
	ErrNegativeRate     = errors.New("negative rate")
	ErrFieldNotFound    = errors.New("custom field not found")
)

// DefaultTariffConfig returns the blank-slate configuration used when a
// property has nothing stored yet: all rates and fees zero, no custom
// fields, all baselines zero. A fresh property bills as free until
// rates are set.
func DefaultTariffConfig() TariffConfig {
	return TariffConfig{
		CustomReadings: map[string]decimal.Decimal{},
	}
}

func (f CustomFieldConfig) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyFieldName
	}
	switch f.Type {
	case FieldRate:
		if strings.TrimSpace(f.Unit) == "" {
			return ErrMissingUnit
		}
	case FieldFee:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFieldType, f.Type)
	}
	if f.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

func (c TariffConfig) Validate() error {
	for _, r := range []decimal.Decimal{
		c.ElectricityRate, c.WaterRate, c.GasRate, c.WaterFixedFee, c.GasFixedFee,
	} {
		if r.IsNegative() {
			return ErrNegativeRate
		}
	}
	for _, f := range c.CustomFields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.Type == FieldRate {
			if _, ok := c.CustomReadings[f.ID]; !ok {
				return fmt.Errorf("field %q: missing last reading", f.Name)
			}
		}
	}
	return nil
}

// CustomField returns the field with the given id, if present.
func (c TariffConfig) CustomField(id string) (CustomFieldConfig, bool) {
	for _, f := range c.CustomFields {
		if f.ID == id {
			return f, true
		}
	}
	return CustomFieldConfig{}, false
}

// AddCustomField appends a new field with a fresh id. Rate fields seed
// their rolling baseline with startReading; fee fields get no reading
// entry.
func (c *TariffConfig) AddCustomField(name string, t FieldType, unit string, price, startReading decimal.Decimal) (CustomFieldConfig, error) {
	f := CustomFieldConfig{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		Type:  t,
		Unit:  strings.TrimSpace(unit),
		Price: price,
	}
	if err := f.Validate(); err != nil {
		return CustomFieldConfig{}, err
	}
	c.CustomFields = append(c.CustomFields, f)
	if t == FieldRate {
		if c.CustomReadings == nil {
			c.CustomReadings = map[string]decimal.Decimal{}
		}
		c.CustomReadings[f.ID] = startReading
	}
	return f, nil
}

// RemoveCustomField deletes the field and its reading entry. Bills that
// already reference the field keep their historical snapshot untouched.
func (c *TariffConfig) RemoveCustomField(id string) error {
	idx := -1
	for i, f := range c.CustomFields {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrFieldNotFound
	}
	c.CustomFields = append(c.CustomFields[:idx], c.CustomFields[idx+1:]...)
	delete(c.CustomReadings, id)
	return nil
}

// Clone returns a deep copy, safe to mutate independently.
func (c TariffConfig) Clone() TariffConfig {
	out := c
	out.CustomFields = append([]CustomFieldConfig(nil), c.CustomFields...)
	out.CustomReadings = make(map[string]decimal.Decimal, len(c.CustomReadings))
	for k, v := range c.CustomReadings {
		out.CustomReadings[k] = v
	}
	return out
}
