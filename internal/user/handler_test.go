package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *fakeRepo, *usertype.Map) {
	t.Helper()
	svc, repo, types := newTestService(t)
	h := NewHandler(svc, types, zap.NewNop().Sugar())
	return h, svc, repo, types
}

func postJSON(path, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func withClaims(r *http.Request, ut token.UserToken) *http.Request {
	return r.WithContext(token.NewContext(r.Context(), ut))
}

func TestHandlerLogin(t *testing.T) {
	h, svc, repo, types := newTestHandler(t)
	seed(t, svc, repo, types, "alice", "pw123456", "Writer")

	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/user/login", `{"username":"alice","password":"pw123456"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestHandlerLoginFailureBodiesMatch(t *testing.T) {
	h, svc, repo, types := newTestHandler(t)
	seed(t, svc, repo, types, "alice", "pw123456", "Writer")

	unknown := httptest.NewRecorder()
	h.Login(unknown, postJSON("/api/user/login", `{"username":"nope","password":"pw123456"}`))
	wrongPw := httptest.NewRecorder()
	h.Login(wrongPw, postJSON("/api/user/login", `{"username":"alice","password":"wrong"}`))

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, unknown.Body.String(), wrongPw.Body.String())
}

func TestHandlerGetByID(t *testing.T) {
	h, svc, repo, types := newTestHandler(t)
	u := seed(t, svc, repo, types, "alice", "pw123456", "Writer")

	w := httptest.NewRecorder()
	h.GetByID(w, httptest.NewRequest(http.MethodGet, "/api/user/id?id="+u.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["username"])
	_, hasHash := resp["passwordHash"]
	assert.False(t, hasHash)

	missing := httptest.NewRecorder()
	h.GetByID(missing, httptest.NewRequest(http.MethodGet, "/api/user/id?id=999", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestHandlerAdd(t *testing.T) {
	h, svc, repo, types := newTestHandler(t)
	admin := seed(t, svc, repo, types, "admin", "pw123456", "Admin")

	body := `{"newUser":{"username":"a","email":"a@x.com","password":"pw123456","userType":"Writer"}}`
	w := httptest.NewRecorder()
	h.Add(w, withClaims(postJSON("/api/user/add", body), asToken(admin)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
	_, hasHash := resp["passwordHash"]
	assert.False(t, hasHash)
	_, hasPw := resp["password"]
	assert.False(t, hasPw)

	// same username again
	dup := httptest.NewRecorder()
	h.Add(dup, withClaims(postJSON("/api/user/add", body), asToken(admin)))
	assert.Equal(t, http.StatusBadRequest, dup.Code)
}

func TestHandlerDeleteHigherLevel(t *testing.T) {
	h, svc, repo, types := newTestHandler(t)
	admin := seed(t, svc, repo, types, "admin", "pw123456", "Admin")
	super := seed(t, svc, repo, types, "root", "pw123456", "SuperAdmin")

	w := httptest.NewRecorder()
	h.Delete(w, withClaims(postJSON("/api/user/delete", `{"user":{"id":"`+super.ID+`"}}`), asToken(admin)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "higher level")
}

func TestHandlerUpdatePasswordWithToken(t *testing.T) {
	h, svc, repo, types := newTestHandler(t)
	u := seed(t, svc, repo, types, "alice", "pw123456", "Writer")

	tokW := httptest.NewRecorder()
	h.GetPasswordResetToken(tokW, postJSON("/api/user/getPasswordResetToken",
		`{"user":{"id":"`+u.ID+`","password":"pw123456"}}`))
	require.Equal(t, http.StatusOK, tokW.Code)
	var tokResp map[string]string
	require.NoError(t, json.Unmarshal(tokW.Body.Bytes(), &tokResp))

	w := httptest.NewRecorder()
	h.UpdatePasswordWithToken(w, postJSON("/api/user/updatePasswordWithToken",
		`{"user":{"id":"`+u.ID+`","newPassword":"newpw1234","passwordToken":"`+tokResp["token"]+`"}}`))
	require.Equal(t, http.StatusOK, w.Code)

	bad := httptest.NewRecorder()
	h.UpdatePasswordWithToken(bad, postJSON("/api/user/updatePasswordWithToken",
		`{"user":{"id":"`+u.ID+`","newPassword":"x12345678","passwordToken":"bogus"}}`))
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
