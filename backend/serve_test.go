package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = "memory"
	cfg.Storage.Root = t.TempDir()
	cfg.Templates.Dir = t.TempDir()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.RateLimit.Burst = 1000
	cfg.Users = []config.User{
		{Username: "admin", Password: "adminpass", Role: "admin"},
		{Username: "clerk", Password: "clerkpass", Role: "staff"},
	}

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()
	w := do(t, router, "POST", "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestRouterHealth(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := do(t, router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterRequiresAuth(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := do(t, router, "GET", "/api/subjects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouterSubjectDocuments(t *testing.T) {
	router := newRouter(newTestApp(t))
	token := login(t, router, "clerk", "clerkpass")

	w := do(t, router, "POST", "/api/subjects", token, map[string]string{
		"first_name": "Ana",
		"last_name":  "Ruiz",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var subject struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subject))

	w = do(t, router, "GET", "/api/subjects/"+subject.ID+"/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"authority_document"`)

	// Nothing generated yet
	w = do(t, router, "GET", "/api/subjects/"+subject.ID+"/documents/contract", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_GENERATED"`)
	assert.Contains(t, w.Body.String(), `"shouldGenerate":true`)

	// Contracts need national id and address
	w = do(t, router, "POST", "/api/subjects/"+subject.ID+"/documents/contract/generate", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "national_id")

	w = do(t, router, "GET", "/api/subjects/"+subject.ID+"/documents/invoice", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterResetRequiresAdmin(t *testing.T) {
	a := newTestApp(t)
	router := newRouter(a)

	require.NoError(t, a.subjects.SaveSubject(context.Background(), testSubject()))

	w := do(t, router, "DELETE", "/api/subjects/s1/documents/contract", login(t, router, "clerk", "clerkpass"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, "DELETE", "/api/subjects/s1/documents/contract", login(t, router, "admin", "adminpass"), nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func testSubject() *model.Subject {
	return &model.Subject{ID: "s1", FirstName: "Ana", LastName: "Ruiz"}
}
