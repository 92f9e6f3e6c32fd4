package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coloft/internal/auth"
	"coloft/internal/config"
	"coloft/internal/recurrence"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Events["past"] = config.EventConfig{
		Name:           "Past Only",
		RuleDescriptor: recurrence.RuleDescriptor{Rule: "dates", Dates: []string{"2025-06-01"}},
	}
	sched, err := cfg.Schedule()
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "site/index.html", []byte("<h1>hello</h1>"), 0o644))

	s := NewServer(cfg, sched, fsys, func() recurrence.Date { return day("2026-01-01") })
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEvents(t *testing.T) {
	_, srv := newTestServer(t)

	var body struct {
		AsOf   string `json:"as_of"`
		Events []struct {
			ID      string   `json:"id"`
			Rule    string   `json:"rule"`
			Cadence string   `json:"cadence"`
			Next    *string  `json:"next"`
			Dates   []string `json:"dates"`
		} `json:"events"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/events", &body))
	assert.Equal(t, "2026-01-01", body.AsOf)
	require.Len(t, body.Events, 3)

	past := body.Events[0]
	assert.Equal(t, "past", past.ID)
	assert.Nil(t, past.Next)
	assert.NotNil(t, past.Dates)
	assert.Empty(t, past.Dates)

	tuesday := body.Events[1]
	assert.Equal(t, "sex-positive-friends", tuesday.ID)
	require.NotNil(t, tuesday.Next)
	assert.Equal(t, "2026-01-06", *tuesday.Next)
	assert.Equal(t, []string{"2026-01-06", "2026-01-13", "2026-01-20"}, tuesday.Dates)

	sunday := body.Events[2]
	assert.Equal(t, "every Sunday", sunday.Rule)
	assert.Equal(t, "unbounded-periodic", sunday.Cadence)
	assert.Equal(t, []string{"2026-01-04", "2026-01-11", "2026-01-18"}, sunday.Dates)
}

func TestEvent(t *testing.T) {
	_, srv := newTestServer(t)

	var ev struct {
		ID    string   `json:"id"`
		Next  string   `json:"next"`
		Dates []string `json:"dates"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/events/somatic-colab?as_of=2026-01-05", &ev))
	assert.Equal(t, "somatic-colab", ev.ID)
	assert.Equal(t, "2026-01-11", ev.Next)
	assert.Equal(t, []string{"2026-01-11", "2026-01-18", "2026-01-25"}, ev.Dates)

	var errBody struct {
		Error string `json:"error"`
	}
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/events/nope", &errBody))
	assert.Equal(t, "unknown event: nope", errBody.Error)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/events?as_of=tomorrow", &errBody))
}

func TestRebuild(t *testing.T) {
	s, _ := newTestServer(t)
	post := func() int {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebuild", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, post())

	calls := 0
	s.Rebuild = func() error { calls++; return nil }
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, 1, calls)

	s.Rebuild = func() error { return errors.New("disk full") }
	assert.Equal(t, http.StatusInternalServerError, post())
}

func TestRebuild_BasicAuth(t *testing.T) {
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", PasswordHash: hash}
	sched, err := cfg.Schedule()
	require.NoError(t, err)

	s := NewServer(cfg, sched, afero.NewMemMapFs(), nil)
	s.Rebuild = func() error { return nil }

	post := func(user, pass string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/rebuild", nil)
		if user != "" {
			req.SetBasicAuth(user, pass)
		}
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusUnauthorized, post("", ""))
	assert.Equal(t, http.StatusUnauthorized, post("admin", "wrong"))
	assert.Equal(t, http.StatusOK, post("admin", "pw"))

	health := httptest.NewRecorder()
	s.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestStaticSite(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	api, err := http.Get(srv.URL + "/api/unknown")
	require.NoError(t, err)
	api.Body.Close()
	assert.Equal(t, http.StatusNotFound, api.StatusCode)
}

// day parses a YYYY-MM-DD literal.
func day(s string) recurrence.Date {
	d, err := recurrence.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
