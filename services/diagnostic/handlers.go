package diagnostic

import (
	"log"
	"runtime"
	"time"

	"github.com/datamelt/fengine"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Function Handler

type FunctionHandler struct {
	l *zap.Logger
}

func (h *FunctionHandler) ParseFailed(title, text string, err error) {
	h.l.Error("failed to parse expression",
		zap.String("title", title),
		zap.String("expression", text),
		zap.Stringer("kind", fengine.KindOf(err)),
		zap.Error(err),
	)
}

func (h *FunctionHandler) SamplingFailed(title string, err error) {
	h.l.Error("sampling stopped",
		zap.String("title", title),
		zap.Stringer("kind", fengine.KindOf(err)),
		zap.Error(err),
	)
}

func (h *FunctionHandler) SymbolicFailed(title, op string, err error) {
	h.l.Error("symbolic operation failed",
		zap.String("title", title),
		zap.String("op", op),
		zap.Error(err),
	)
}

// Registry Handler

type RegistryHandler struct {
	l *zap.Logger
}

func (h *RegistryHandler) WithFunctionContext(name string) fengine.Diagnostic {
	return &FunctionHandler{
		l: h.l.With(zap.String("function", name)),
	}
}

func (h *RegistryHandler) Restored(count int) {
	h.l.Info("restored functions", zap.String("count", humanize.Comma(int64(count))))
}

func (h *RegistryHandler) Defined(name string, dimension int) {
	h.l.Debug("defined function", zap.String("function", name), zap.Int("dimension", dimension))
}

func (h *RegistryHandler) Deleted(name string) {
	h.l.Debug("deleted function", zap.String("function", name))
}

func (h *RegistryHandler) Error(msg string, err error) {
	h.l.Error(msg, zap.Error(err))
}

// Storage Handler

type StorageHandler struct {
	l *zap.Logger
}

func (h *StorageHandler) Opened(path string, size int64) {
	h.l.Info("opened database", zap.String("path", path), zap.String("size", humanize.IBytes(uint64(size))))
}

func (h *StorageHandler) Error(msg string, err error) {
	h.l.Error(msg, zap.Error(err))
}

// HTTPD handler

type HTTPDHandler struct {
	l *zap.Logger
}

func (h *HTTPDHandler) NewHTTPServerErrorLogger() *log.Logger {
	l, err := zap.NewStdLogAt(h.l.With(zap.String("service", "httpd_server_errors")), zap.ErrorLevel)
	if err != nil {
		return zap.NewStdLog(h.l)
	}
	return l
}

func (h *HTTPDHandler) StartingService() {
	h.l.Info("starting HTTP service")
}

func (h *HTTPDHandler) StoppedService() {
	h.l.Info("closed HTTP service")
}

func (h *HTTPDHandler) ShutdownTimeout() {
	h.l.Error("shutdown timedout, forcefully closing all remaining connections")
}

func (h *HTTPDHandler) ListeningOn(addr string, proto string) {
	h.l.Info("listening on", zap.String("addr", addr), zap.String("protocol", proto))
}

func (h *HTTPDHandler) HTTP(
	host string,
	start time.Time,
	method string,
	uri string,
	proto string,
	status int,
	referer string,
	userAgent string,
	reqID string,
	duration time.Duration,
) {
	h.l.Info("http request",
		zap.String("host", host),
		zap.Time("start", start),
		zap.String("method", method),
		zap.String("uri", uri),
		zap.String("protocol", proto),
		zap.Int("status", status),
		zap.String("referer", referer),
		zap.String("user-agent", userAgent),
		zap.String("request-id", reqID),
		zap.Duration("duration", duration),
	)
}

func (h *HTTPDHandler) RecoveryError(
	msg string,
	err string,
	host string,
	start time.Time,
	method string,
	uri string,
	proto string,
	reqID string,
) {
	h.l.Error(
		msg,
		zap.String("err", err),
		zap.String("host", host),
		zap.Time("start", start),
		zap.String("method", method),
		zap.String("uri", uri),
		zap.String("protocol", proto),
		zap.String("request-id", reqID),
	)
}

func (h *HTTPDHandler) Error(msg string, err error) {
	h.l.Error(msg, zap.Error(err))
}

// Load handler

type LoadHandler struct {
	l *zap.Logger
}

func (h *LoadHandler) Error(msg string, err error) {
	h.l.Error(msg, zap.Error(err))
}

func (h *LoadHandler) Debug(msg string) {
	h.l.Debug(msg)
}

func (h *LoadHandler) Loading(el string, file string) {
	h.l.Debug("loading object from file", zap.String("object", el), zap.String("file", file))
}

// Server handler

type ServerHandler struct {
	l *zap.Logger
}

func (h *ServerHandler) Error(msg string, err error) {
	h.l.Error(msg, zap.Error(err))
}

func (h *ServerHandler) Info(msg string, fields ...zap.Field) {
	h.l.Info(msg, fields...)
}

func (h *ServerHandler) Debug(msg string, fields ...zap.Field) {
	h.l.Debug(msg, fields...)
}

// Cmd handler

type CmdHandler struct {
	l *zap.Logger
}

func (h *CmdHandler) Error(msg string, err error) {
	h.l.Error(msg, zap.Error(err))
}

func (h *CmdHandler) FengineStarting(version, branch, commit string) {
	h.l.Info("fengine starting", zap.String("version", version), zap.String("branch", branch), zap.String("commit", commit))
}

func (h *CmdHandler) GoVersion() {
	h.l.Info("go version", zap.String("version", runtime.Version()))
}

func (h *CmdHandler) Info(msg string) {
	h.l.Info(msg)
}
