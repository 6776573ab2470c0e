package httpapi

import (
	"context"
	"net/http"
	"time"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/middleware"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := s.svc.Register(r.Context(), goPairAuth.RegisterRequest{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := s.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := s.svc.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogoutCurrent(w http.ResponseWriter, r *http.Request) {
	s.logout(w, r, s.svc.LogoutCurrentDevice)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	s.logout(w, r, s.svc.LogoutAllDevices)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	token, err := s.bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := fn(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	noCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	token, err := s.bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := s.svc.ListSessions(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: ids})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	token, err := s.bearer(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.ChangePassword(r.Context(), token, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	noCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, errMissingToken)
		return
	}
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, UserResponse{ID: id.UserID, Username: id.Username, Roles: roles})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	rtt, err := s.svc.Ping(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"redis_ms": rtt.Milliseconds(),
	})
}
