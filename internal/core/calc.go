package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// EnteredValues carries the raw text typed into the billing form.
	// Empty strings mean "no new value entered this cycle".
	EnteredValues struct {
		Electricity string
		Water       string
		Gas         string
		// CustomReadings maps rate-type field ids to reading text.
		CustomReadings map[string]string
		// ManualFees maps fee-type field ids to amount text. Only
		// honored for fields whose configured price is zero; priced
		// fees always charge their configured amount.
		ManualFees map[string]string
	}

	// Preview is the result of one calculation pass. It carries no
	// hidden state: the same config and input always produce the same
	// preview, so it is safe to recompute on every keystroke.
	Preview struct {
		Consumption   ConsumptionData
		Breakdown     CostBreakdown
		CustomRecords []CustomBillRecord
		TotalCost     decimal.Decimal
	}
)

// Calculate computes consumption, the per-category cost breakdown and
// the total for the entered values against cfg. It is pure: nothing is
// mutated and no error is ever produced — malformed or missing input
// contributes zero.
func Calculate(cfg TariffConfig, in EnteredValues) Preview {
	cons := ConsumptionData{
		Electricity: consumptionOf(in.Electricity, cfg.LastReadings.Electricity),
		Water:       consumptionOf(in.Water, cfg.LastReadings.Water),
		Gas:         consumptionOf(in.Gas, cfg.LastReadings.Gas),
	}

	breakdown := CostBreakdown{
		ElectricityCost: cons.Electricity.Mul(cfg.ElectricityRate),
		WaterCost:       cons.Water.Mul(cfg.WaterRate),
		WaterFixedFee:   cfg.WaterFixedFee,
		GasCost:         cons.Gas.Mul(cfg.GasRate),
		GasFixedFee:     cfg.GasFixedFee,
	}

	total := breakdown.Sum()

	var records []CustomBillRecord
	for _, f := range cfg.CustomFields {
		rec := CustomBillRecord{
			FieldID: f.ID,
			Name:    f.Name,
			Type:    f.Type,
			Unit:    f.Unit,
		}
		switch f.Type {
		case FieldRate:
			rec.Consumption = consumptionOf(in.CustomReadings[f.ID], cfg.CustomReadings[f.ID])
			rec.Cost = rec.Consumption.Mul(f.Price)
		case FieldFee:
			if f.Price.IsZero() {
				if v, ok := ParseReading(in.ManualFees[f.ID]); ok {
					rec.Cost = v
				}
			} else {
				rec.Cost = f.Price
			}
		}
		total = total.Add(rec.Cost)
		records = append(records, rec)
	}

	return Preview{
		Consumption:   cons,
		Breakdown:     breakdown,
		CustomRecords: records,
		TotalCost:     total,
	}
}

// consumptionOf applies the rolling-meter rule for one metered
// quantity. Blank or unparsable input means no new reading, which is
// zero consumption. An entered value below the stored baseline (meter
// rollback, replacement, typo) clamps to zero rather than going
// negative; the typed value still becomes the new baseline at commit.
func consumptionOf(entered string, last decimal.Decimal) decimal.Decimal {
	v, ok := ParseReading(entered)
	if !ok {
		return decimal.Decimal{}
	}
	c := v.Sub(last)
	if c.IsNegative() {
		return decimal.Decimal{}
	}
	return c
}

// Commitable reports whether the preview carries anything worth
// persisting. The guard looks only at the total and the electricity
// meter; water, gas and custom consumption are deliberately not
// consulted, matching the historical behavior.
func (p Preview) Commitable() bool {
	return !(p.TotalCost.IsZero() && p.Consumption.Electricity.IsZero())
}

// AdvanceReadings returns a copy of cfg with the meter baselines moved
// to the values typed this cycle. Blank fields keep their stored
// baseline unchanged — consumption for them was zero and the next cycle
// continues from the same point. A typed value is stored verbatim, even
// when it is below the previous reading.
func AdvanceReadings(cfg TariffConfig, in EnteredValues) TariffConfig {
	out := cfg.Clone()
	if v, ok := ParseReading(in.Electricity); ok {
		out.LastReadings.Electricity = v
	}
	if v, ok := ParseReading(in.Water); ok {
		out.LastReadings.Water = v
	}
	if v, ok := ParseReading(in.Gas); ok {
		out.LastReadings.Gas = v
	}
	for _, f := range cfg.CustomFields {
		if f.Type != FieldRate {
			continue
		}
		if v, ok := ParseReading(in.CustomReadings[f.ID]); ok {
			out.CustomReadings[f.ID] = v
		}
	}
	return out
}

// NewBillRecord freezes a preview into an immutable bill dated at.
func NewBillRecord(p Preview, at time.Time) BillRecord {
	return BillRecord{
		Date:                   at,
		ElectricityConsumption: p.Consumption.Electricity,
		WaterConsumption:       p.Consumption.Water,
		GasConsumption:         p.Consumption.Gas,
		Breakdown:              p.Breakdown,
		CustomRecords:          append([]CustomBillRecord(nil), p.CustomRecords...),
		TotalCost:              p.TotalCost,
	}
}
