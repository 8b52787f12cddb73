package httpd_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datamelt/fengine"
	"github.com/datamelt/fengine/services/diagnostic"
	"github.com/datamelt/fengine/services/httpd"
	"github.com/datamelt/fengine/services/logging/loggingtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"
)

func newHandler(t *testing.T, logging bool) (*httpd.Handler, *observer.ObservedLogs) {
	l, logs := loggingtest.New()
	h := httpd.NewHandler(logging, prometheus.NewRegistry(), diagnostic.NewService(l).NewHTTPDHandler())
	h.Version = "test"
	return h, logs
}

func TestHandler_Ping(t *testing.T) {
	h, logs := newHandler(t, true)

	req := httptest.NewRequest("GET", httpd.BasePath+"/ping", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "test", w.Header().Get("X-FENGINE-Version"))
	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Request-Id"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, w.Header().Get("Request-Id"), entries[0].ContextMap()["request-id"])
}

func TestHandler_Routes(t *testing.T) {
	h, _ := newHandler(t, false)

	require.NoError(t, h.AddRoutes([]httpd.Route{{
		Method:  "GET",
		Pattern: "/echo/:word",
		HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
			w.Write(httpd.MarshalJSON(map[string]string{"word": httpd.Param(r, "word")}, false))
		},
	}}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", httpd.BasePath+"/echo/hello", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"word":"hello"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", httpd.BasePath+"/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, w.Body.String())

	assert.Error(t, h.AddRoute(httpd.Route{Method: "GET", Pattern: "echo", HandlerFunc: func(http.ResponseWriter, *http.Request) {}}))
	assert.Error(t, h.AddRoute(httpd.Route{Method: "GET", Pattern: "/nothing"}))
	assert.Error(t, h.AddRoute(httpd.Route{Method: "GET", Pattern: "/echo/:word", HandlerFunc: func(http.ResponseWriter, *http.Request) {}}))
}

func TestHandler_Panic(t *testing.T) {
	h, logs := newHandler(t, false)
	require.NoError(t, h.AddRoute(httpd.Route{
		Method:  "GET",
		Pattern: "/panic",
		HandlerFunc: func(http.ResponseWriter, *http.Request) {
			panic("boom")
		},
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", httpd.BasePath+"/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("a panic has occurred").Len())
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	h := httpd.NewHandler(false, reg, diagnostic.NewService(nil).NewHTTPDHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_total 1")
}

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		kind   fengine.Kind
		status int
	}{
		{kind: fengine.KindNone, status: http.StatusOK},
		{kind: fengine.KindParse, status: http.StatusBadRequest},
		{kind: fengine.KindNotParsed, status: http.StatusConflict},
		{kind: fengine.KindEvaluation, status: http.StatusUnprocessableEntity},
		{kind: fengine.KindInvalidPointCount, status: http.StatusBadRequest},
		{kind: fengine.KindInsufficientPoints, status: http.StatusBadRequest},
		{kind: fengine.KindSymbolic, status: http.StatusUnprocessableEntity},
		{kind: fengine.KindUnsupported, status: http.StatusNotImplemented},
		{kind: fengine.KindInvalidArgument, status: http.StatusBadRequest},
		{kind: fengine.KindUnknown, status: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		if got := httpd.StatusOf(tc.kind); got != tc.status {
			t.Errorf("unexpected status for %v: got %d exp %d", tc.kind, got, tc.status)
		}
	}
}

func TestService_OpenClose(t *testing.T) {
	c := httpd.NewConfig()
	c.BindAddress = "127.0.0.1:0"
	require.NoError(t, c.Validate())
	s := httpd.NewService(c, prometheus.NewRegistry(), diagnostic.NewService(nil).NewHTTPDHandler())
	require.NoError(t, s.Open())

	resp, err := http.Get(s.URL() + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, s.Close())
	assert.NoError(t, <-s.Err())
}

func TestConfig_Validate(t *testing.T) {
	c := httpd.NewConfig()
	assert.NoError(t, c.Validate())
	c.BindAddress = "localhost"
	assert.Error(t, c.Validate())
	c.BindAddress = ":http"
	assert.Error(t, c.Validate())

	var d httpd.Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
