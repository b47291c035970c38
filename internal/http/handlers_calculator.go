package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/on3oleg/utihome/internal/core"
)

// formatMoney renders a decimal amount in hryvnia for the UI
func formatMoney(d decimal.Decimal) string {
	return "₴" + d.StringFixed(2)
}

type customFieldView struct {
	ID          string
	Name        string
	Unit        string
	Price       string
	LastReading string
	IsRate      bool
	// Fee fields with a zero configured price take their amount from the form.
	Manual bool
}

func customFieldViews(cfg core.TariffConfig) []customFieldView {
	out := make([]customFieldView, 0, len(cfg.CustomFields))
	for _, f := range cfg.CustomFields {
		v := customFieldView{
			ID:     f.ID,
			Name:   f.Name,
			Unit:   f.Unit,
			Price:  f.Price.String(),
			IsRate: f.Type == core.FieldRate,
			Manual: f.Type == core.FieldFee && f.Price.IsZero(),
		}
		if f.Type == core.FieldRate {
			v.LastReading = cfg.CustomReadings[f.ID].String()
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) handleCalculator(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	prop, errResp := s.propertyForRequest(r, r.URL.Query())
	if errResp != nil {
		errResp.Write(w)
		return
	}

	cfg, err := s.billing.TariffConfig(r.Context(), prop.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Load tariff config error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not load tariffs").Write(w)
		return
	}

	data := struct {
		PropertyID      int64
		PropertyName    string
		ElectricityLast string
		WaterLast       string
		GasLast         string
		ElectricityRate string
		WaterRate       string
		GasRate         string
		WaterFixedFee   string
		GasFixedFee     string
		CustomFields    []customFieldView
	}{
		PropertyID:      prop.ID,
		PropertyName:    prop.Name,
		ElectricityLast: cfg.LastReadings.Electricity.String(),
		WaterLast:       cfg.LastReadings.Water.String(),
		GasLast:         cfg.LastReadings.Gas.String(),
		ElectricityRate: cfg.ElectricityRate.String(),
		WaterRate:       cfg.WaterRate.String(),
		GasRate:         cfg.GasRate.String(),
		WaterFixedFee:   cfg.WaterFixedFee.String(),
		GasFixedFee:     cfg.GasFixedFee.String(),
		CustomFields:    customFieldViews(cfg),
	}
	s.render(w, r, "calculator.html", data)
}

type previewRow struct {
	Name        string
	Consumption string
	Unit        string
	Cost        string
}

func previewData(propertyID int64, p core.Preview) any {
	rows := []previewRow{
		{Name: "Electricity", Consumption: p.Consumption.Electricity.String(), Unit: "kWh", Cost: formatMoney(p.Breakdown.ElectricityCost)},
		{Name: "Water", Consumption: p.Consumption.Water.String(), Unit: "m³", Cost: formatMoney(p.Breakdown.WaterCost)},
		{Name: "Water fixed fee", Cost: formatMoney(p.Breakdown.WaterFixedFee)},
		{Name: "Gas", Consumption: p.Consumption.Gas.String(), Unit: "m³", Cost: formatMoney(p.Breakdown.GasCost)},
		{Name: "Gas fixed fee", Cost: formatMoney(p.Breakdown.GasFixedFee)},
	}
	for _, rec := range p.CustomRecords {
		row := previewRow{Name: rec.Name, Cost: formatMoney(rec.Cost)}
		if rec.Type == core.FieldRate {
			row.Consumption = rec.Consumption.String()
			row.Unit = rec.Unit
		}
		rows = append(rows, row)
	}

	return struct {
		PropertyID int64
		Rows       []previewRow
		Total      string
		Commitable bool
	}{
		PropertyID: propertyID,
		Rows:       rows,
		Total:      formatMoney(p.TotalCost),
		Commitable: p.Commitable(),
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	prop, errResp := s.propertyForRequest(r, r.Form)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	in := ParseEnteredValues(r.Form)
	preview, _, err := s.billing.Preview(r.Context(), prop.ID, in)
	if err != nil {
		slog.ErrorContext(r.Context(), "Preview error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not compute preview").Write(w)
		return
	}

	s.render(w, r, "preview.html", previewData(prop.ID, preview))
}

func (s *Server) handleCommitBill(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	prop, errResp := s.propertyForRequest(r, r.Form)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	in := ParseEnteredValues(r.Form)
	bill, err := s.billing.Commit(r.Context(), prop.ID, in)
	if err != nil {
		slog.ErrorContext(r.Context(), "Commit bill error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not save bill").Write(w)
		return
	}

	if bill == nil {
		NewHTMXResponse().
			TriggerNotification(NotificationInfo, "Nothing to save", 3000).
			Write(w)
		return
	}

	s.logs.LogBillCommitted(r.Context(), bill.ID, prop.ID, bill.TotalCost.String())

	NewHTMXResponse().
		TriggerBillCommitted(bill.ID, prop.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Bill saved: " + formatMoney(bill.TotalCost)).
		Write(w)
}
