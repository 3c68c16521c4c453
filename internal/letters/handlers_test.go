package letters

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/generator"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) router(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		u, err := f.store.GetUser(c.Request.Context(), f.user.ID)
		require.NoError(t, err)
		auth.SetCurrentUser(c, u)
	})
	api.POST("/generate-letter", GenerateHandler(f.svc))
	api.GET("/letters", ListHandler(f.svc))
	api.GET("/letters/:id", GetHandler(f.svc))
	api.PATCH("/letters/:id", UpdateHandler(f.svc))
	api.DELETE("/letters/:id", DeleteHandler(f.svc))
	api.PATCH("/letters/:id/favorite", FavoriteHandler(f.svc))
	api.PATCH("/letters/:id/rating", RatingHandler(f.svc))
	api.GET("/letters/:id/download", DownloadHandler(f.svc))
	return r
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Details   []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

func TestGenerateEndpoint(t *testing.T) {
	f := newFixture(t, 2, 3, nil)
	r := f.router(t)

	w := request(r, http.MethodPost, "/api/generate-letter", fmt.Sprintf(`{"letterType":"sop","profileId":%d}`, f.profile.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Letter               models.GeneratedLetter `json:"letter"`
		RemainingGenerations int                    `json:"remainingGenerations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 0, result.RemainingGenerations)
	assert.NotZero(t, result.Letter.ID)

	w = request(r, http.MethodPost, "/api/generate-letter", fmt.Sprintf(`{"letterType":"sop","profileId":%d}`, f.profile.ID))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGenerateEndpointErrors(t *testing.T) {
	f := newFixture(t, 0, 3, nil)
	r := f.router(t)

	w := request(r, http.MethodPost, "/api/generate-letter", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Details, 2)

	w = request(r, http.MethodPost, "/api/generate-letter", `{"letterType":"sop","profileId":999}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.gen.Response = ""
	f.gen.Err = generator.ErrMissingAPIKey
	w = request(r, http.MethodPost, "/api/generate-letter", fmt.Sprintf(`{"letterType":"sop","profileId":%d}`, f.profile.ID))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body = errorBody{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to generate letter", body.Error)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "AI API key is not configured", body.Details[0].Message)
	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}

func TestLetterManagementEndpoints(t *testing.T) {
	f := newFixture(t, 0, 10, nil)
	r := f.router(t)
	l := seedLetter(t, f, "My SOP", "## Intro\nHello **there**", time.Hour, false, 0)
	path := fmt.Sprintf("/api/letters/%d", l.ID)

	w := request(r, http.MethodGet, "/api/letters?filter=all&sort=date", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = request(r, http.MethodGet, "/api/letters?filter=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPatch, path+"/favorite", `{"isFavorite":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isFavorite":true`)

	w = request(r, http.MethodPatch, path+"/favorite", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPatch, path+"/rating", `{"rating":9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = request(r, http.MethodPatch, path+"/rating", `{"rating":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"feedbackRating":4`)

	w = request(r, http.MethodPatch, path, `{"content":"New body with five words"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"wordCount":5`)

	w = request(r, http.MethodGet, path+"/download?format=txt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"my-sop-")
	assert.Equal(t, "New body with five words\n", w.Body.String())

	w = request(r, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, http.MethodGet, "/api/letters/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLetterIDOutOfRangeIsNotFound(t *testing.T) {
	f := newFixture(t, 0, 10, nil)
	r := f.router(t)
	l := seedLetter(t, f, "My SOP", "body", time.Hour, false, 0)

	w := request(r, http.MethodGet, fmt.Sprintf("/api/letters/%d", l.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	// would truncate to l.ID if parsed as 64-bit on a 32-bit build
	wrapped := uint64(l.ID) + 1<<32
	for _, id := range []string{
		strconv.FormatUint(wrapped, 10),
		"100000000000000000000",
		"-1",
		"0",
	} {
		w := request(r, http.MethodGet, "/api/letters/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}
