package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bolingo/bolingo-backend/internal/crypto"
	"github.com/bolingo/bolingo-backend/internal/model"
	"github.com/bolingo/bolingo-backend/internal/repository"
	"github.com/bolingo/bolingo-backend/internal/service"
)

type brokenRepository struct{}

var errStoreDown = errors.New("dial tcp 10.0.0.5:27017: connection refused")

func (brokenRepository) Create(context.Context, *model.User) error { return errStoreDown }

func (brokenRepository) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, errStoreDown
}

func (brokenRepository) GetByID(context.Context, string) (*model.User, error) {
	return nil, errStoreDown
}

func newTestRouter(t *testing.T, repo service.UserRepository) (http.Handler, *crypto.TokenIssuer) {
	t.Helper()

	hasher, err := crypto.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := crypto.NewTokenIssuer("test-secret", nil)
	require.NoError(t, err)

	svc := service.NewAuthService(repo, hasher, tokens)
	return NewRouter(NewAuthHandler(svc), tokens), tokens
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) model.AuthResponse {
	t.Helper()
	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignupLoginScenario(t *testing.T) {
	h, tokens := newTestRouter(t, repository.NewMemoryUserRepository())

	rec := do(t, h, http.MethodPost, "/signup", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	signup := decodeAuth(t, rec)
	assert.True(t, signup.OK)
	require.NotEmpty(t, signup.Token)

	rec = do(t, h, http.MethodPost, "/login", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeAuth(t, rec)
	assert.True(t, login.OK)
	assert.NotEqual(t, signup.Token, login.Token)

	s1, err := tokens.Verify(signup.Token)
	require.NoError(t, err)
	s2, err := tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, "a@x.com", s1.Email)

	rec = do(t, h, http.MethodPost, "/signup", `{"email":"a@x.com","password":"pw2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"user already exists"}`, rec.Body.String())
}

func TestRoutePrefixes(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	for i, prefix := range routePrefixes {
		email := string(rune('a'+i)) + "@x.com"
		body := `{"email":"` + email + `","password":"pw1"}`

		rec := do(t, h, http.MethodPost, prefix+"/signup", body)
		assert.Equal(t, http.StatusOK, rec.Code, prefix)

		rec = do(t, h, http.MethodPost, prefix+"/login", body)
		assert.Equal(t, http.StatusOK, rec.Code, prefix)
	}
}

func TestSignup_ValidationError(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	for _, body := range []string{`{}`, `{"email":"a@x.com"}`, `{"password":"pw1"}`, `{"email":"","password":""}`} {
		rec := do(t, h, http.MethodPost, "/api/signup", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"email and password required"}`, rec.Body.String(), body)
	}
}

func TestSignup_InvalidBody(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	rec := do(t, h, http.MethodPost, "/signup", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestSignup_BodyTooLarge(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	big := `{"email":"a@x.com","password":"pw1","name":"` + strings.Repeat("n", maxBodyBytes) + `"}`
	rec := do(t, h, http.MethodPost, "/signup", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String())
}

func TestLogin_FailuresAreByteIdentical(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	rec := do(t, h, http.MethodPost, "/signup", `{"email":"a@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	unknown := do(t, h, http.MethodPost, "/login", `{"email":"nobody@x.com","password":"pw1"}`)
	wrong := do(t, h, http.MethodPost, "/login", `{"email":"a@x.com","password":"pw2"}`)

	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.True(t, bytes.Equal(unknown.Body.Bytes(), wrong.Body.Bytes()),
		"bodies differ: %q vs %q", unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, unknown.Header().Get("Content-Type"), wrong.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"incorrect credentials"}`, unknown.Body.String())
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	h, _ := newTestRouter(t, brokenRepository{})

	for _, path := range []string{"/signup", "/login"} {
		rec := do(t, h, http.MethodPost, path, `{"email":"a@x.com","password":"pw1"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String(), path)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, brokenRepository{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alive":true}`, rec.Body.String())
}

func TestRoot(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bolingo Backend OK", rec.Body.String())
}

func TestMe(t *testing.T) {
	h, _ := newTestRouter(t, repository.NewMemoryUserRepository())

	rec := do(t, h, http.MethodPost, "/signup", `{"email":"a@x.com","password":"pw1","name":"Ada","country":"CD"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeAuth(t, rec).Token

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me model.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "a@x.com", me.Email)
	assert.Equal(t, "Ada", me.Name)
	assert.Equal(t, "CD", me.Country)
	assert.Equal(t, model.DefaultPlan, me.Plan)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, h, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_TokenForUnknownUser(t *testing.T) {
	h, tokens := newTestRouter(t, repository.NewMemoryUserRepository())

	token, err := tokens.Issue(crypto.Subject{ID: "ghost", Email: "ghost@x.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}
