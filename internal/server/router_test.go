package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/config"
	"github.com/jimdaga/sop-studio/internal/generator"
	"github.com/jimdaga/sop-studio/internal/prompts"
	"github.com/jimdaga/sop-studio/internal/store"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return w
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry, err := prompts.Default()
	require.NoError(t, err)
	gen := generator.NewStubGenerator()
	gen.Response = "## Introduction\nI intend to study at UBC and return home."

	st := store.NewMemoryStore()
	r := NewRouter(Deps{
		Config:    &config.Config{SessionSecret: "test-secret", DefaultLettersLimit: 2},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:     st,
		Generator: gen,
		Prompts:   registry,
	})
	r.POST("/test/login", func(c *gin.Context) {
		user, err := auth.Login(c, st, goth.User{Provider: "google", UserID: "g-1", Email: "jane@example.com", Name: "Jane"}, 2)
		require.NoError(t, err)
		c.JSON(http.StatusOK, user)
	})
	return r, st
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	c := &client{t: t, handler: r}

	w := c.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"ok"}`, w.Body.String())

	w = c.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAPIRequiresSession(t *testing.T) {
	r, _ := newTestRouter(t)
	c := &client{t: t, handler: r}

	for _, path := range []string{"/api/me", "/api/profile", "/api/letters", "/api/dashboard"} {
		w := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := c.do(http.MethodPost, "/api/generate-letter", `{"letterType":"sop","profileId":1}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOnboardingToGenerationFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	c := &client{t: t, handler: r}

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/test/login", "").Code)

	w := c.do(http.MethodGet, "/api/onboarding/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/onboarding/country"`)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/onboarding/country-select", `{"country":"CANADA"}`).Code)

	steps := []string{
		`{"step":"personal","data":{"personalInfo":{"fullName":"Jane Doe","nationality":"Nepali"}}}`,
		`{"step":"academic","data":{"academicBackground":{"highestQualification":"BSc","institution":"Kathmandu University"}}}`,
		`{"step":"target-program","data":{"targetProgram":{"programName":"MEng","university":"UBC"},"whyThisCountry":{"whyThisCountry":"PGWP"}}}`,
		`{"step":"additional","data":{"additionalInfo":{"notes":"none"}}}`,
	}
	for _, body := range steps {
		w = c.do(http.MethodPost, "/api/onboarding/profile-step", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.Contains(t, w.Body.String(), `"redirect":"/canada/dashboard"`)

	w = c.do(http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	var profileBody struct {
		Profile struct {
			ID uint `json:"id"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profileBody))
	require.NotZero(t, profileBody.Profile.ID)

	generate := fmt.Sprintf(`{"letterType":"sop","profileId":%d}`, profileBody.Profile.ID)
	w = c.do(http.MethodPost, "/api/generate-letter", generate)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"remainingGenerations":1`)

	w = c.do(http.MethodPost, "/api/generate-letter", generate)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remainingGenerations":0`)

	w = c.do(http.MethodPost, "/api/generate-letter", generate)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(http.MethodGet, "/api/letters", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = c.do(http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalLetters":2`)
}
