package api

import (
	"net/http"
	"time"

	"roundjudge/internal/api/handler"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

// NewRouter builds the HTTP API. requestTimeout cancels the context of a
// request that runs longer; a submit cut off this way answers 503.
func NewRouter(
	requestTimeout time.Duration,
	tokenAuth *jwtauth.JWTAuth,
	evaluator handler.Evaluator,
	jobs handler.JobQueue,
	rounds handler.RoundLister,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Puts the bearer token and its claims in the request context.
	r.Use(jwtauth.Verifier(tokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		submissionHandler := handler.NewSubmissionHandler(evaluator, jobs)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		roundHandler := handler.NewRoundHandler(rounds)
		v1.Route("/challenges", roundHandler.RegisterRoutes)
	})

	return r
}
