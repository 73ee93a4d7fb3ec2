package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog"
	blogrepo "github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/repo"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page"
	pagerepo "github.com/ovaphlow/pitchfork/service-cms-go/internal/page/repo"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-cms-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
)

// newTestAPI assembles the whole surface on file-backed repos seeded with a
// SuperAdmin "admin" account.
func newTestAPI(t *testing.T) (http.Handler, *token.Signer, *usertype.Map) {
	t.Helper()
	log := zap.NewNop().Sugar()
	types := usertype.NewMap()
	signer := token.NewSigner("test-secret")

	uRepo, err := userrepo.NewFileRepo(t.TempDir(), types, log)
	require.NoError(t, err)
	uSvc := user.NewService(uRepo, types, signer, user.BcryptHasher{Cost: bcrypt.MinCost}, log)
	require.NoError(t, uSvc.EnsureAdmin(context.Background(), "rootpw123"))

	bRepo, err := blogrepo.NewFileRepo(t.TempDir(), log)
	require.NoError(t, err)
	pRepo, err := pagerepo.NewFileRepo(t.TempDir(), log)
	require.NoError(t, err)

	h := RegisterRoutes(log, signer, types,
		user.NewHandler(uSvc, types, log),
		blog.NewHandler(blog.NewService(bRepo, log), log),
		page.NewHandler(page.NewService(pRepo, log), log),
	)
	return h, signer, types
}

func issue(t *testing.T, signer *token.Signer, userType string) string {
	t.Helper()
	tok, err := signer.Issue(token.UserToken{Username: "tester", UserID: "99", UserType: userType})
	require.NoError(t, err)
	return tok
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestLoginFlow(t *testing.T) {
	h, _, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/user/login",
		strings.NewReader(`{"username":"admin","password":"rootpw123"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	h, _, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/id?id=1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := httptest.NewRequest(http.MethodGet, "/api/user/id?id=1", nil)
	bad.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouteMinimumType(t *testing.T) {
	h, signer, _ := newTestAPI(t)

	// Writer sits below the Editor minimum of the user lookup routes
	r := httptest.NewRequest(http.MethodGet, "/api/user/username?username=admin", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, signer, "Writer"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// and below the Admin minimum of user delete
	r = httptest.NewRequest(http.MethodPost, "/api/user/delete",
		strings.NewReader(`{"user":{"id":"1"}}`))
	r.Header.Set("Authorization", "Bearer "+issue(t, signer, "Editor"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// an unknown claimed type degrades to zero privilege
	r = httptest.NewRequest(http.MethodGet, "/api/user/username?username=admin", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, signer, "Wizard"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEditorCanReadUsers(t *testing.T) {
	h, signer, _ := newTestAPI(t)

	r := httptest.NewRequest(http.MethodGet, "/api/user/username?username=admin", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, signer, "Editor"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin", resp["username"])
}

func TestPublicBlogRoutes(t *testing.T) {
	h, signer, _ := newTestAPI(t)

	// a Writer creates a draft and a published post
	for _, body := range []string{
		`{"blog":{"title":"Published Post","authorId":"99","published":true}}`,
		`{"blog":{"title":"Draft Post","authorId":"99"}}`,
	} {
		r := httptest.NewRequest(http.MethodPost, "/api/blog/add", strings.NewReader(body))
		r.Header.Set("Authorization", "Bearer "+issue(t, signer, "Writer"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	}

	// anonymous listing only sees the published one
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blog/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Posts []map[string]any `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 1)

	// the admin listing needs a bearer token
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blog/posts-admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/api/blog/posts-admin", nil)
	r.Header.Set("Authorization", "Bearer "+issue(t, signer, "Writer"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Posts, 2)
}
