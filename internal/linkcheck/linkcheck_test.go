package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractURLs(t *testing.T) {
	doc := `<html><body>
<a href="https://b.example/x">b</a>
<a href="https://a.example/" target="_blank">a</a>
<a href="https://b.example/x">dup</a>
<a href="index.html">local</a>
<a href="#top">anchor</a>
<link rel="stylesheet" href="http://cdn.example/s.css"/>
<a>no href</a>
</body></html>`

	urls, err := ExtractURLs(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://cdn.example/s.css", "https://a.example/", "https://b.example/x"}, urls)
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/agent":
			if r.UserAgent() != "test-agent" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/moved":
			w.Header().Set("Location", "/ok")
			w.WriteHeader(http.StatusMovedPermanently)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChecker_Check(t *testing.T) {
	srv := testServer(t)
	c := NewChecker(time.Second, 0, "")
	ctx := context.Background()

	ok := c.Check(ctx, srv.URL+"/ok")
	assert.True(t, ok.OK)
	assert.Equal(t, http.StatusOK, ok.Status)

	moved := c.Check(ctx, srv.URL+"/moved")
	assert.True(t, moved.OK)
	assert.True(t, moved.Redirect())
	assert.Equal(t, "/ok", moved.Location)

	missing := c.Check(ctx, srv.URL+"/missing")
	assert.False(t, missing.OK)
	assert.Equal(t, http.StatusNotFound, missing.Status)

	slow := NewChecker(20*time.Millisecond, 0, "").Check(ctx, srv.URL+"/slow")
	assert.False(t, slow.OK)
	assert.Equal(t, 0, slow.Status)
	assert.Equal(t, "request timeout", slow.Err)
}

func TestChecker_CheckAllAndSummarize(t *testing.T) {
	srv := testServer(t)
	c := NewChecker(time.Second, time.Millisecond, "test-agent")

	var calls []int
	results := c.CheckAll(context.Background(), []string{srv.URL + "/agent", srv.URL + "/moved", srv.URL + "/gone"}, func(i int, _ Result) {
		calls = append(calls, i)
	})
	require.Len(t, results, 3)
	assert.Equal(t, []int{0, 1, 2}, calls)

	s := Summarize(results)
	assert.Len(t, s.Working, 2)
	assert.Len(t, s.Redirects, 1)
	assert.Len(t, s.Broken, 1)
	assert.Equal(t, srv.URL+"/gone", s.Broken[0].URL)
}

func TestChecker_CheckAllCancelled(t *testing.T) {
	srv := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewChecker(time.Second, 0, "").CheckAll(ctx, []string{srv.URL + "/ok"}, nil)
	assert.Empty(t, results)
}
