package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RecoverMiddleware(printStack bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("panic: %v", r)
					}
					WriteJSON(w, http.StatusInternalServerError, NewDetailedStatusProblem(http.StatusInternalServerError, err.Error()))
					log.Error("recover an panic", "err", err)
					if printStack {
						debug.PrintStack()
					}
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter routes the read-only view and the metrics endpoint. middlewares
// run after recovery and logging.
func NewRouter(api *HandlerAPI, middlewares ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(RecoverMiddleware(false))
	router.Use(Log15Middleware(log))
	router.Use(middlewares...)

	router.HandleFunc(GetPollsPattern, api.GetPollsHandler).Methods("GET", "OPTIONS")
	router.HandleFunc(GetPollPattern, api.GetPollHandler).Methods("GET", "OPTIONS")
	router.HandleFunc(GetStatusPattern, api.GetStatusHandler).Methods("GET", "OPTIONS")
	router.Handle(MetricsPattern, promhttp.Handler()).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, NewStatusProblem(http.StatusNotFound))
	})

	return router
}

// Server serves the view over HTTP until its context is canceled.
type Server struct {
	server   *http.Server
	listener net.Listener
}

func NewServer(bind string, api *HandlerAPI, middlewares ...mux.MiddlewareFunc) (*Server, error) {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, err
	}

	allowedOrigins := ghandlers.AllowedOrigins([]string{"*"})
	allowedMethods := ghandlers.AllowedMethods([]string{"GET", "OPTIONS"})
	allowedHeaders := ghandlers.AllowedHeaders([]string{"Content-Type", "X-Requested-With", "Cache-Control", "Accept"})

	return &Server{
		server: &http.Server{
			Handler:           ghandlers.CORS(allowedOrigins, allowedMethods, allowedHeaders)(NewRouter(api, middlewares...)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
	}, nil
}

// Addr is the address actually listened on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start blocks serving requests; it returns nil after `Stop`.
func (s *Server) Start() error {
	log.Info("api server started", "bind", s.Addr())

	if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown api server", "error", err)
		s.server.Close()
	}
	log.Info("api server stopped")
}
