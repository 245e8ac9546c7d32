package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funyblog/funyblog/internal/auth"
	"github.com/funyblog/funyblog/internal/middleware"
	"github.com/funyblog/funyblog/internal/model"
	"github.com/funyblog/funyblog/internal/queue"
	"github.com/funyblog/funyblog/internal/repository"
)

type fakeCredentials struct {
	p   auth.Principal
	err error
}

func (f fakeCredentials) Verify(context.Context, string, string) (auth.Principal, error) {
	return f.p, f.err
}

type fakeUsers struct {
	u   model.User
	err error
}

func (f fakeUsers) FindByID(context.Context, int64) (model.User, error) { return f.u, f.err }

type recordingAudit struct {
	events []queue.LoginEvent
	err    error
}

func (r *recordingAudit) PublishLogin(_ context.Context, ev queue.LoginEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

var (
	fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	admin    = auth.Principal{ID: 1, Username: "admin", Role: auth.RoleAdmin}
)

func newHandler(t *testing.T, creds Credentials, users UserFinder, audit AuditSink) *AuthHandler {
	t.Helper()
	iss, err := auth.NewIssuer([]byte("handler-test-secret"), 24*time.Hour)
	require.NoError(t, err)
	h := &AuthHandler{
		Credentials: creds,
		Issuer:      iss,
		Users:       users,
		Now:         func() time.Time { return fixedNow },
		SetCookie:   true,
	}
	if audit != nil {
		h.Audit = audit
	}
	return h
}

func postLogin(h *AuthHandler, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = h.Login(e.NewContext(req, rec))
	return rec
}

func TestLogin_Success(t *testing.T) {
	audit := &recordingAudit{}
	h := newHandler(t, fakeCredentials{p: admin}, nil, audit)

	rec := postLogin(h, `{"username":"admin","password":"correct"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, admin, resp.User)
	assert.True(t, resp.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 86400, cookies[0].MaxAge)

	require.Len(t, audit.events, 1)
	assert.Equal(t, queue.OutcomeSuccess, audit.events[0].Outcome)
	assert.Equal(t, int64(1), audit.events[0].UserID)
}

func TestLogin_NoCookieWhenDisabled(t *testing.T) {
	h := newHandler(t, fakeCredentials{p: admin}, nil, nil)
	h.SetCookie = false
	rec := postLogin(h, `{"username":"admin","password":"correct"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		outcome queue.Outcome
	}{
		{"bad json", `{"username":`, nil, http.StatusBadRequest, queue.OutcomeInvalidInput},
		{"invalid input", `{"username":"","password":""}`, auth.ErrInvalidInput, http.StatusBadRequest, queue.OutcomeInvalidInput},
		{"invalid credentials", `{"username":"admin","password":"nope"}`, auth.ErrInvalidCredentials, http.StatusUnauthorized, queue.OutcomeInvalidCredentials},
		{"store failure", `{"username":"admin","password":"x"}`, &auth.StoreError{Op: "find user", Err: errors.New("db down")}, http.StatusInternalServerError, queue.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &recordingAudit{}
			h := newHandler(t, fakeCredentials{err: tt.err}, nil, audit)
			rec := postLogin(h, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
			assert.NotContains(t, rec.Body.String(), "db down")
			require.Len(t, audit.events, 1)
			assert.Equal(t, tt.outcome, audit.events[0].Outcome)
		})
	}
}

func TestLogin_InvalidCredentialsBody(t *testing.T) {
	h := newHandler(t, fakeCredentials{err: auth.ErrInvalidCredentials}, nil, nil)
	rec := postLogin(h, `{"username":"admin","password":"nope"}`)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())
}

func TestLogin_AuditFailureDoesNotFailRequest(t *testing.T) {
	h := newHandler(t, fakeCredentials{p: admin}, nil, &recordingAudit{err: errors.New("broker down")})
	rec := postLogin(h, `{"username":"admin","password":"correct"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func currentUser(h *AuthHandler, withPrincipal bool) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/current-user", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if withPrincipal {
		middleware.SetPrincipal(c, admin)
	}
	_ = h.CurrentUser(c)
	return rec
}

func TestCurrentUser(t *testing.T) {
	tests := []struct {
		name   string
		users  fakeUsers
		status int
		body   string
	}{
		{"found", fakeUsers{u: model.User{ID: 1, Username: "admin"}}, http.StatusOK, `{"username":"admin"}`},
		{"deleted", fakeUsers{err: repository.ErrNotFound}, http.StatusNotFound, `{"error":"user not found"}`},
		{"store failure", fakeUsers{err: errors.New("db down")}, http.StatusInternalServerError, `{"error":"load user failed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, nil, tt.users, nil)
			rec := currentUser(h, true)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestCurrentUser_WithoutPrincipal(t *testing.T) {
	h := newHandler(t, nil, fakeUsers{}, nil)
	rec := currentUser(h, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ExpiresCookie(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	h := newHandler(t, nil, nil, nil)
	require.NoError(t, h.Logout(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil), rec)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}
