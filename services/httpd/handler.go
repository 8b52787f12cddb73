package httpd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/datamelt/fengine"
	"github.com/google/uuid"
	"github.com/influxdata/httprouter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const BasePath = "/fengine/v1"

type Route struct {
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
	noJSON      bool
}

// Handler represents an HTTP handler for the fengine API server.
type Handler struct {
	router *httprouter.Router

	Version string

	// Log every HTTP access.
	loggingEnabled bool
	diag           Diagnostic
}

// NewHandler returns a handler serving ping and the metrics of gatherer.
func NewHandler(loggingEnabled bool, gatherer prometheus.Gatherer, d Diagnostic) *Handler {
	h := &Handler{
		router:         httprouter.New(),
		loggingEnabled: loggingEnabled,
		diag:           d,
	}
	h.router.AddMatchedRouteToContext = true
	h.router.PanicHandler = h.panicHandler
	h.router.NotFound = http.HandlerFunc(h.serve404)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h.addRawRoutes([]Route{
		{
			Method:      "GET",
			Pattern:     BasePath + "/ping",
			HandlerFunc: h.servePing,
		},
		{
			Method:      "HEAD",
			Pattern:     BasePath + "/ping",
			HandlerFunc: h.servePing,
		},
		{
			Method:      "GET",
			Pattern:     "/metrics",
			HandlerFunc: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP,
			noJSON:      true,
		},
	})
	return h
}

func (h *Handler) AddRoutes(routes []Route) error {
	for _, r := range routes {
		if err := h.AddRoute(r); err != nil {
			return err
		}
	}
	return nil
}

// AddRoute registers r below BasePath.
func (h *Handler) AddRoute(r Route) error {
	if len(r.Pattern) > 0 && r.Pattern[0] != '/' {
		return fmt.Errorf("route patterns must begin with a '/' %s", r.Pattern)
	}
	r.Pattern = BasePath + r.Pattern
	return h.addRawRoute(r)
}

func (h *Handler) addRawRoutes(routes []Route) {
	for _, r := range routes {
		// raw routes are static and known to be valid
		_ = h.addRawRoute(r)
	}
}

// Add a route without prepending the BasePath
func (h *Handler) addRawRoute(r Route) (err error) {
	if r.HandlerFunc == nil {
		return errors.New("route does not have valid handler function")
	}
	var handler http.Handler = r.HandlerFunc
	if !r.noJSON {
		handler = jsonContent(handler)
	}
	handler = versionHeader(handler, h)
	handler = cors(handler)
	handler = requestID(handler)
	if h.loggingEnabled {
		handler = logHandler(handler, h.diag)
	}

	// httprouter panics on conflicting routes
	defer func() {
		if rcv := recover(); rcv != nil {
			err = fmt.Errorf("failed to add route %s %s: %v", r.Method, r.Pattern, rcv)
		}
	}()
	h.router.Handler(r.Method, r.Pattern, handler)
	return nil
}

// ServeHTTP responds to HTTP request to the handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// serve404 returns an a formated 404 error
func (h *Handler) serve404(w http.ResponseWriter, r *http.Request) {
	HttpError(w, "Not Found", true, http.StatusNotFound)
}

// servePing returns a simple response to let the client know the server is running.
func (h *Handler) servePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) panicHandler(w http.ResponseWriter, r *http.Request, rcv interface{}) {
	h.diag.RecoveryError(
		"a panic has occurred",
		fmt.Sprintf("%v\n%s", rcv, debug.Stack()),
		r.RemoteAddr,
		time.Now(),
		r.Method,
		r.URL.RequestURI(),
		r.Proto,
		r.Header.Get("Request-Id"),
	)
	HttpError(w, "internal error", true, http.StatusInternalServerError)
}

// Param returns the named route parameter of the request.
func Param(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}

// MarshalJSON will marshal v to JSON. Pretty prints if pretty is true.
func MarshalJSON(v interface{}, pretty bool) []byte {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "    ")
	} else {
		b, err = json.Marshal(v)
	}

	if err != nil {
		type errResponse struct {
			Error string `json:"error"`
		}
		er := errResponse{Error: err.Error()}
		b, _ = json.Marshal(er)
	}
	return b
}

// HttpError writes an error to the client in a standard format.
func HttpError(w http.ResponseWriter, err string, pretty bool, code int) {
	w.WriteHeader(code)

	type errResponse struct {
		Error string `json:"error"`
	}

	response := errResponse{Error: err}
	var b []byte
	if pretty {
		b, _ = json.MarshalIndent(response, "", "    ")
	} else {
		b, _ = json.Marshal(response)
	}
	w.Write(b)
}

// HttpKindError writes err with the status of its fengine kind and the
// kind name.
func HttpKindError(w http.ResponseWriter, err error, pretty bool) {
	kind := fengine.KindOf(err)
	w.WriteHeader(StatusOf(kind))
	response := struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}{
		Error: err.Error(),
		Kind:  kind.String(),
	}
	w.Write(MarshalJSON(response, pretty))
}

// StatusOf maps an error kind to the HTTP status reported for it.
func StatusOf(kind fengine.Kind) int {
	switch kind {
	case fengine.KindNone:
		return http.StatusOK
	case fengine.KindParse,
		fengine.KindInvalidPointCount,
		fengine.KindInsufficientPoints,
		fengine.KindInvalidArgument:
		return http.StatusBadRequest
	case fengine.KindNotParsed:
		return http.StatusConflict
	case fengine.KindEvaluation, fengine.KindSymbolic:
		return http.StatusUnprocessableEntity
	case fengine.KindUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func jsonContent(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		inner.ServeHTTP(w, r)
	})
}

// versionHeader takes a HTTP handler and returns a HTTP handler
// and adds the X-FENGINE-VERSION header to outgoing responses.
func versionHeader(inner http.Handler, h *Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-FENGINE-Version", h.Version)
		inner.ServeHTTP(w, r)
	})
}

// cors responds to incoming requests and adds the appropriate cors headers
func cors(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set(`Access-Control-Allow-Origin`, origin)
			w.Header().Set(`Access-Control-Allow-Methods`, strings.Join([]string{
				`DELETE`,
				`GET`,
				`OPTIONS`,
				`PATCH`,
				`POST`,
			}, ", "))

			w.Header().Set(`Access-Control-Allow-Headers`, strings.Join([]string{
				`Accept`,
				`Accept-Encoding`,
				`Content-Length`,
				`Content-Type`,
			}, ", "))
		}

		inner.ServeHTTP(w, r)
	})
}

func requestID(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("Request-Id", uuid.New().String())
		w.Header().Set("Request-Id", r.Header.Get("Request-Id"))

		inner.ServeHTTP(w, r)
	})
}

// responseLogger records the status and size of a response.
type responseLogger struct {
	w      http.ResponseWriter
	status int
	size   int
}

func (l *responseLogger) Header() http.Header {
	return l.w.Header()
}

func (l *responseLogger) Write(b []byte) (int, error) {
	if l.status == 0 {
		l.status = http.StatusOK
	}
	n, err := l.w.Write(b)
	l.size += n
	return n, err
}

func (l *responseLogger) WriteHeader(s int) {
	l.w.WriteHeader(s)
	l.status = s
}

func (l *responseLogger) Flush() {
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
}

func logHandler(inner http.Handler, d Diagnostic) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := &responseLogger{w: w}
		inner.ServeHTTP(l, r)
		if l.status == 0 {
			l.status = http.StatusOK
		}
		d.HTTP(
			r.RemoteAddr,
			start,
			r.Method,
			r.URL.RequestURI(),
			r.Proto,
			l.status,
			r.Referer(),
			r.UserAgent(),
			r.Header.Get("Request-Id"),
			time.Since(start),
		)
	})
}
