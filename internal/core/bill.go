package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// ConsumptionData holds the quantities consumed this cycle for the
	// three standard utilities.
	ConsumptionData struct {
		Electricity decimal.Decimal `json:"electricity"`
		Water       decimal.Decimal `json:"water"`
		Gas         decimal.Decimal `json:"gas"`
	}

	// CostBreakdown is the per-category cost attribution for one cycle.
	CostBreakdown struct {
		ElectricityCost decimal.Decimal `json:"electricityCost"`
		WaterCost       decimal.Decimal `json:"waterCost"`
		WaterFixedFee   decimal.Decimal `json:"waterFixedFee"`
		GasCost         decimal.Decimal `json:"gasCost"`
		GasFixedFee     decimal.Decimal `json:"gasFixedFee"`
	}

	// CustomBillRecord is the frozen snapshot of one custom field at
	// commit time. Price edits or field deletion after the fact do not
	// touch it.
	CustomBillRecord struct {
		FieldID     string          `json:"fieldId"`
		Name        string          `json:"name"`
		Type        FieldType       `json:"type"`
		Unit        string          `json:"unit,omitempty"`
		Consumption decimal.Decimal `json:"consumption"`
		Cost        decimal.Decimal `json:"cost"`
	}

	// BillRecord is created once per commit and never mutated, except
	// for Name which the user may change later.
	BillRecord struct {
		ID                     string             `json:"id,omitempty"`
		Date                   time.Time          `json:"date"`
		Name                   string             `json:"name,omitempty"`
		ElectricityConsumption decimal.Decimal    `json:"electricityConsumption"`
		WaterConsumption       decimal.Decimal    `json:"waterConsumption"`
		GasConsumption         decimal.Decimal    `json:"gasConsumption"`
		Breakdown              CostBreakdown      `json:"breakdown"`
		CustomRecords          []CustomBillRecord `json:"customRecords,omitempty"`
		TotalCost              decimal.Decimal    `json:"totalCost"`
	}
)

var ErrTotalMismatch = errors.New("total cost does not match breakdown")

// Sum adds the five breakdown components.
func (b CostBreakdown) Sum() decimal.Decimal {
	return b.ElectricityCost.
		Add(b.WaterCost).
		Add(b.WaterFixedFee).
		Add(b.GasCost).
		Add(b.GasFixedFee)
}

// Validate checks the bill's internal consistency: the total must equal
// the breakdown plus all custom costs, and no consumption may be
// negative.
func (b BillRecord) Validate() error {
	for _, c := range []decimal.Decimal{
		b.ElectricityConsumption, b.WaterConsumption, b.GasConsumption,
	} {
		if c.IsNegative() {
			return errors.New("negative consumption")
		}
	}
	total := b.Breakdown.Sum()
	for _, r := range b.CustomRecords {
		if r.Consumption.IsNegative() {
			return errors.New("negative consumption")
		}
		total = total.Add(r.Cost)
	}
	if !total.Equal(b.TotalCost) {
		return ErrTotalMismatch
	}
	return nil
}
