package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	logging "github.com/inconshreveable/log15"

	"boscoin.io/pollwatch/lib/metrics"
)

type responseLog15Writer struct {
	w      http.ResponseWriter
	status int
	size   int
}

func (l *responseLog15Writer) Header() http.Header {
	return l.w.Header()
}

func (l *responseLog15Writer) Write(b []byte) (int, error) {
	if l.status == 0 {
		l.status = http.StatusOK
	}
	size, err := l.w.Write(b)
	l.size += size
	return size, err
}

func (l *responseLog15Writer) WriteHeader(s int) {
	l.w.WriteHeader(s)
	l.status = s
}

func (l *responseLog15Writer) Flush() {
	if f, ok := l.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Log15Handler logs every request and its response, and records request
// metrics per route template.
type Log15Handler struct {
	log     logging.Logger
	handler http.Handler
}

func NewLog15Handler(l logging.Logger, handler http.Handler) Log15Handler {
	return Log15Handler{log: l, handler: handler}
}

// Log15Middleware runs after routing, so the route template is known.
func Log15Middleware(l logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewLog15Handler(l, next)
	}
}

// ServeHTTP will log in 2 phase, when request received and response sent.
func (l Log15Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	begin := time.Now()
	uid := uuid.New().String()

	l.log.Debug(
		"request",
		"id", uid,
		"method", r.Method,
		"uri", r.URL.RequestURI(),
		"remote", r.RemoteAddr,
		"accept", r.Header.Get("Accept"),
		"user-agent", r.UserAgent(),
	)

	writer := &responseLog15Writer{w: w}
	l.handler.ServeHTTP(writer, r)
	if writer.status == 0 {
		writer.status = http.StatusOK
	}

	endpoint := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			endpoint = tpl
		}
	}
	metrics.API.ObserveRequest(begin, endpoint, r.Method, writer.status)

	l.log.Debug(
		"response",
		"id", uid,
		"status", writer.status,
		"size", writer.size,
		"elapsed", time.Since(begin),
	)
}
