package user

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
)

// Handler exposes the HTTP endpoints of the user vertical. Route paths and
// per-route minimum-type filtering live in the router; the handler assumes
// the auth middleware already placed verified claims on the context for
// protected routes.
type Handler struct {
	svc    *Service
	types  *usertype.Map
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, types *usertype.Map, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, types: types, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errs.ErrValidation)
		return
	}
	tok, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "username", req.Username)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	u, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u.Profile())
}

func (h *Handler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	u, err := h.svc.GetByUsername(r.Context(), username)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u.Profile())
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewUser json.RawMessage `json:"newUser"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.NewUser) == 0 {
		h.writeError(w, errs.ErrValidation)
		return
	}
	n, err := entity.ParseNewUser(req.NewUser, h.types)
	if err != nil {
		h.writeError(w, err)
		return
	}
	requester, ok := token.FromContext(r.Context())
	if !ok {
		h.writeError(w, errs.ErrUnauthorized)
		return
	}
	u, err := h.svc.Add(r.Context(), n, requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u.API())
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.User) == 0 {
		h.writeError(w, errs.ErrValidation)
		return
	}
	e, err := entity.ParseEditUser(req.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	requester, ok := token.FromContext(r.Context())
	if !ok {
		h.writeError(w, errs.ErrUnauthorized)
		return
	}
	u, err := h.svc.Edit(r.Context(), e, requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u.API())
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			ID          string `json:"id"`
			OldPassword string `json:"oldPassword"`
			NewPassword string `json:"newPassword"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.User.ID == "" || req.User.NewPassword == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	requester, ok := token.FromContext(r.Context())
	if !ok {
		h.writeError(w, errs.ErrUnauthorized)
		return
	}
	if err := h.svc.UpdatePassword(r.Context(), req.User.ID, req.User.OldPassword, req.User.NewPassword, requester); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) UpdatePasswordWithToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			ID            string `json:"id"`
			NewPassword   string `json:"newPassword"`
			PasswordToken string `json:"passwordToken"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.User.ID == "" || req.User.NewPassword == "" || req.User.PasswordToken == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	if err := h.svc.UpdatePasswordWithToken(r.Context(), req.User.ID, req.User.PasswordToken, req.User.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) GetPasswordResetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			ID       string `json:"id"`
			Password string `json:"password"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.User.ID == "" || req.User.Password == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	tok, err := h.svc.GetPasswordResetToken(r.Context(), req.User.ID, req.User.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User.ID == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	requester, ok := token.FromContext(r.Context())
	if !ok {
		h.writeError(w, errs.ErrUnauthorized)
		return
	}
	if err := h.svc.Delete(r.Context(), req.User.ID, requester); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"msg": "user deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errs.StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Errorw("user request failed", "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": errs.Public(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
