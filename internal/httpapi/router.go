package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func NewRouter(handlers *Handlers, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/health", handlers.HealthHandler).Methods("GET")
	r.HandleFunc("/key", handlers.KeyHandler).Methods("GET")
	r.HandleFunc("/isVerified", handlers.IsVerifiedHandler).Methods("GET")
	r.HandleFunc("/collect", handlers.CollectHandler).Methods("GET")
	r.HandleFunc("/link", handlers.LinkHandler).Methods("GET")
	r.HandleFunc("/duplicates", handlers.DuplicatesHandler).Methods("GET")

	return r
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("request received",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("user_agent", r.UserAgent()),
				zap.String("remote_addr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}
}
