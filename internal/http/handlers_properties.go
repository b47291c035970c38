package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/on3oleg/utihome/internal/storage"
)

// propertyForRequest resolves the property_id parameter and checks that the
// property belongs to the authenticated user. Cross-user ids get the same 404
// as missing ones.
func (s *Server) propertyForRequest(r *http.Request, values url.Values) (storage.Property, *HTMXResponseBuilder) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		return storage.Property{}, ErrorResponse(http.StatusUnauthorized, "authentication required")
	}

	id, err := idField(values, "property_id")
	if err != nil {
		return storage.Property{}, BadRequestError(err.Error())
	}

	prop, err := s.billing.Property(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Property{}, NotFoundError("Property not found")
		}
		slog.ErrorContext(r.Context(), "Load property error", "error", err, "property_id", id)
		return storage.Property{}, InternalServerError("Could not load property")
	}
	if prop.UserID != sess.UserID {
		return storage.Property{}, NotFoundError("Property not found")
	}
	return prop, nil
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		// fallthrough to render below
	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}
		name := sanitizeInput(r.Form.Get("name"))
		description := sanitizeInput(r.Form.Get("description"))
		if name == "" {
			UnprocessableEntityError("Property name is required").Write(w)
			return
		}
		if _, err := s.billing.CreateProperty(r.Context(), sess.UserID, name, description); err != nil {
			slog.ErrorContext(r.Context(), "Create property error", "error", err)
			InternalServerError("Could not create property").Write(w)
			return
		}
	default:
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	properties, err := s.billing.ListProperties(r.Context(), sess.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List properties error", "error", err, "user_id", sess.UserID)
		InternalServerError("Could not load properties").Write(w)
		return
	}

	data := struct {
		Properties []storage.Property
	}{Properties: properties}
	s.render(w, r, "properties.html", data)
}

func (s *Server) handleRenameProperty(w http.ResponseWriter, r *http.Request) {
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
	if name == "" {
		UnprocessableEntityError("Property name is required").Write(w)
		return
	}

	if err := s.billing.RenameProperty(r.Context(), prop.ID, name); err != nil {
		slog.ErrorContext(r.Context(), "Rename property error", "error", err, "property_id", prop.ID)
		InternalServerError("Could not rename property").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Property renamed").
		Write(w)
}
