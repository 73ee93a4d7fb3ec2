package blog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/entity"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/errs"
)

// Handler exposes the HTTP endpoints of the blog vertical.
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

// listParams reads the ?pagination=&page= query pair; malformed values fall
// back to defaults in the service.
func listParams(r *http.Request) (pagination, page int) {
	pagination, _ = strconv.Atoi(r.URL.Query().Get("pagination"))
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	return pagination, page
}

// Posts is the public listing: published posts only.
func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// PostsAdmin includes drafts; the router gates it to Writer and above.
func (h *Handler) PostsAdmin(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, includeUnpublished bool) {
	pagination, page := listParams(r)
	posts, err := h.svc.List(r.Context(), pagination, page, includeUnpublished)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]entity.StoredBlogPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Stored())
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blog json.RawMessage `json:"blog"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Blog) == 0 {
		h.writeError(w, errs.ErrValidation)
		return
	}
	n, err := entity.ParseNewBlogPost(req.Blog)
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.svc.Add(r.Context(), n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p.Stored())
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blog json.RawMessage `json:"blog"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Blog) == 0 {
		h.writeError(w, errs.ErrValidation)
		return
	}
	p, err := entity.ParseEditBlogPost(req.Blog)
	if err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.svc.Edit(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated.Stored())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blog struct {
			ID string `json:"id"`
		} `json:"blog"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Blog.ID == "" {
		h.writeError(w, errs.ErrValidation)
		return
	}
	if err := h.svc.Delete(r.Context(), req.Blog.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"msg": "blog post deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errs.StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Errorw("blog request failed", "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": errs.Public(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
