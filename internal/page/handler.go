package page

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
)

// Handler exposes the HTTP endpoints of the page vertical.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p.Stored())
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	p, err := h.svc.GetBySlug(r.Context(), slug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p.Stored())
}

// PagesAdmin lists every page; the router gates it to Writer and above.
func (h *Handler) PagesAdmin(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]entity.StoredPage, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Stored())
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"pages": out})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page json.RawMessage `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Page) == 0 {
		h.writeError(w, errs.ErrValidation)
		return
	}
	n, err := entity.ParseNewPage(req.Page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	requester, ok := token.FromContext(r.Context())
	if !ok {
		h.writeError(w, errs.ErrUnauthorized)
		return
	}
	p, err := h.svc.Add(r.Context(), n, requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p.Stored())
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page json.RawMessage `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Page) == 0 {
		h.writeError(w, errs.ErrValidation)
		return
	}
	p, err := entity.ParseEditPage(req.Page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	requester, ok := token.FromContext(r.Context())
	if !ok {
		h.writeError(w, errs.ErrUnauthorized)
		return
	}
	updated, err := h.svc.Edit(r.Context(), p, requester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated.Stored())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page struct {
			ID string `json:"id"`
		} `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page.ID == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	if err := h.svc.Delete(r.Context(), req.Page.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"msg": "page deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errs.StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Errorw("page request failed", "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": errs.Public(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
