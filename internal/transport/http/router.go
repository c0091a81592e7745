package http

import (
	"net/http"
	"time"

	"blitz-trivia-service/internal/logger"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins    []string
	RateLimit      int
	RateWindow     time.Duration
	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is always the client.
	TrustedProxies []string
}

// NewRouter mounts every endpoint behind request logging, per-client rate
// limiting and CORS.
func NewRouter(quizzes *QuizHandler, leaderboard *LeaderboardHandler, results *GameResultHandler, ws *WSHandler, log *logger.Logger, opts RouterOptions) http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quizzes", quizzes.Get).Methods(http.MethodGet)
	api.HandleFunc("/quizzes", quizzes.Post).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", leaderboard.Post).Methods(http.MethodPost)
	api.HandleFunc("/game-result", results.Post).Methods(http.MethodPost)

	router.HandleFunc("/ws", ws.ServeWS).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	ips, invalid := newIPResolver(opts.TrustedProxies)
	if len(invalid) > 0 {
		log.Warn("ignoring invalid trusted proxies", "entries", invalid)
	}
	limiter := newClientLimiter(opts.RateLimit, opts.RateWindow)
	return requestLogger(log, ips)(rateLimitMiddleware(limiter, ips)(c.Handler(router)))
}
