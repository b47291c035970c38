package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/on3oleg/utihome/internal/core"
	"github.com/on3oleg/utihome/internal/services"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderSettings(w, r)
	case http.MethodPost:
		s.handleUpdateRates(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request) {
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
		ElectricityRate string
		WaterRate       string
		GasRate         string
		WaterFixedFee   string
		GasFixedFee     string
		ElectricityLast string
		WaterLast       string
		GasLast         string
		CustomFields    []customFieldView
	}{
		PropertyID:      prop.ID,
		PropertyName:    prop.Name,
		ElectricityRate: cfg.ElectricityRate.String(),
		WaterRate:       cfg.WaterRate.String(),
		GasRate:         cfg.GasRate.String(),
		WaterFixedFee:   cfg.WaterFixedFee.String(),
		GasFixedFee:     cfg.GasFixedFee.String(),
		ElectricityLast: cfg.LastReadings.Electricity.String(),
		WaterLast:       cfg.LastReadings.Water.String(),
		GasLast:         cfg.LastReadings.Gas.String(),
		CustomFields:    customFieldViews(cfg),
	}
	s.render(w, r, "settings.html", data)
}

func (s *Server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	prop, errResp := s.propertyForRequest(r, r.Form)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	var upd services.RatesUpdate
	var err error
	if upd.ElectricityRate, err = decimalField(r.Form, "rate_electricity"); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if upd.WaterRate, err = decimalField(r.Form, "rate_water"); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if upd.GasRate, err = decimalField(r.Form, "rate_gas"); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if upd.WaterFixedFee, err = decimalField(r.Form, "fee_water"); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if upd.GasFixedFee, err = decimalField(r.Form, "fee_gas"); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if _, err := s.billing.UpdateRates(r.Context(), prop.ID, upd); err != nil {
		if errors.Is(err, core.ErrNegativeRate) {
			UnprocessableEntityError("Rates cannot be negative").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Update rates error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not update tariffs").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTariffUpdated(prop.ID).
		TriggerSuccessNotification("Tariffs updated").
		Write(w)
}

func (s *Server) handleUpdateReadings(w http.ResponseWriter, r *http.Request) {
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

	var readings core.StandardReadings
	var err error
	if readings.Electricity, err = decimalField(r.Form, fieldReadingElectricity); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if readings.Water, err = decimalField(r.Form, fieldReadingWater); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	if readings.Gas, err = decimalField(r.Form, fieldReadingGas); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if _, err := s.billing.UpdateReadings(r.Context(), prop.ID, readings); err != nil {
		slog.ErrorContext(r.Context(), "Update readings error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not update readings").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTariffUpdated(prop.ID).
		TriggerSuccessNotification("Baseline readings updated").
		Write(w)
}

func (s *Server) handleAddCustomField(w http.ResponseWriter, r *http.Request) {
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

	name := sanitizeInput(r.Form.Get("name"))
	fieldType := sanitizeInput(r.Form.Get("type"))
	unit := sanitizeInput(r.Form.Get("unit"))

	price, err := decimalField(r.Form, "price")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	startReading, err := decimalField(r.Form, "start_reading")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if _, err := s.billing.AddCustomField(r.Context(), prop.ID, name, fieldType, unit, price, startReading); err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyFieldName),
			errors.Is(err, core.ErrInvalidFieldType),
			errors.Is(err, core.ErrMissingUnit),
			errors.Is(err, core.ErrNegativePrice):
			UnprocessableEntityError(err.Error()).Write(w)
		default:
			slog.ErrorContext(r.Context(), "Add custom field error", "error", err, "property_id", prop.ID)
			InternalServerError("Could not add field").Write(w)
		}
		return
	}

	NewHTMXResponse().
		TriggerTariffUpdated(prop.ID).
		TriggerSuccessNotification("Field added").
		Write(w)
}

func (s *Server) handleRemoveCustomField(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
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

	fieldID := sanitizeInput(r.Form.Get("field_id"))
	if err := s.billing.RemoveCustomField(r.Context(), prop.ID, fieldID); err != nil {
		if errors.Is(err, core.ErrFieldNotFound) {
			NotFoundError("Field not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Remove custom field error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not remove field").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTariffUpdated(prop.ID).
		TriggerSuccessNotification("Field removed").
		Write(w)
}
