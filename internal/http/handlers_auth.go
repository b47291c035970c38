package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/on3oleg/utihome/internal/services"
	"github.com/on3oleg/utihome/internal/storage"
)

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sess, ok := s.sessionFromRequest(r)
	if !ok {
		s.render(w, r, "login.html", nil)
		return
	}

	properties, err := s.billing.ListProperties(r.Context(), sess.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List properties error", "error", err, "user_id", sess.UserID)
		InternalServerError("Could not load properties").Write(w)
		return
	}

	data := struct {
		Email      string
		Properties []storage.Property
	}{
		Email:      sess.Email,
		Properties: properties,
	}
	s.render(w, r, "index.html", data)
}

// sessionFromRequest resolves the session cookie without rejecting the request
func (s *Server) sessionFromRequest(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return Session{}, false
	}
	return s.sessions.Get(cookie.Value)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.auth.Register(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail),
			errors.Is(err, services.ErrWeakPassword):
			UnprocessableEntityError(err.Error()).Write(w)
		case errors.Is(err, storage.ErrEmailTaken):
			UnprocessableEntityError("An account with this email already exists").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Register error", "error", err)
			InternalServerError("Could not create account").Write(w)
		}
		return
	}

	sess := s.sessions.Create(user.ID, user.Email)
	s.setSessionCookie(w, sess)

	NewHTMXResponse().
		Header("HX-Redirect", "/").
		TriggerSuccessNotification("Account created").
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			ErrorResponse(http.StatusUnauthorized, "Invalid email or password").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Login error", "error", err)
		InternalServerError("Could not sign in").Write(w)
		return
	}

	sess := s.sessions.Create(user.ID, user.Email)
	s.setSessionCookie(w, sess)

	NewHTMXResponse().
		Header("HX-Redirect", "/").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	s.clearSessionCookie(w)

	NewHTMXResponse().
		Header("HX-Redirect", "/").
		Write(w)
}
