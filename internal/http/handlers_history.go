package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/on3oleg/utihome/internal/core"
	"github.com/on3oleg/utihome/internal/storage"
)

type billView struct {
	ID          string
	Date        string
	Name        string
	Electricity string
	Water       string
	Gas         string
	Custom      []customRecordView
	Total       string
}

type customRecordView struct {
	Name string
	Cost string
}

func billViews(bills []core.BillRecord) []billView {
	out := make([]billView, 0, len(bills))
	for _, b := range bills {
		v := billView{
			ID:          b.ID,
			Date:        b.Date.Format("02.01.2006"),
			Name:        b.Name,
			Electricity: b.ElectricityConsumption.String(),
			Water:       b.WaterConsumption.String(),
			Gas:         b.GasConsumption.String(),
			Total:       formatMoney(b.TotalCost),
		}
		for _, rec := range b.CustomRecords {
			v.Custom = append(v.Custom, customRecordView{Name: rec.Name, Cost: formatMoney(rec.Cost)})
		}
		out = append(out, v)
	}
	return out
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	prop, errResp := s.propertyForRequest(r, r.URL.Query())
	if errResp != nil {
		errResp.Write(w)
		return
	}

	bills, err := s.billing.History(r.Context(), prop.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "History error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not load history").Write(w)
		return
	}

	data := struct {
		PropertyID   int64
		PropertyName string
		Bills        []billView
	}{
		PropertyID:   prop.ID,
		PropertyName: prop.Name,
		Bills:        billViews(bills),
	}
	s.render(w, r, "history.html", data)
}

func (s *Server) handleRenameBill(w http.ResponseWriter, r *http.Request) {
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

	billID, err := idField(r.Form, "bill_id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := sanitizeInput(r.Form.Get("name"))

	if err := s.billing.RenameBill(r.Context(), prop.ID, billID, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Bill not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Rename bill error", "error", err, "bill_id", billID)
		InternalServerError("Could not rename bill").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerBillRenamed(prop.ID).
		TriggerSuccessNotification("Bill renamed").
		Write(w)
}
