package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medsuy/patient-portal/internal/booking"
	httpmiddleware "github.com/medsuy/patient-portal/internal/http/middleware"
	"github.com/medsuy/patient-portal/internal/messaging"
	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	SessionHandler   *session.Handler
	SessionVerifier  httpmiddleware.TokenVerifier
	BookingHandler   *booking.Handler
	MessagingHandler *messaging.Handler
	ChatStream       *messaging.Stream
	MetricsHandler   http.Handler

	CORSAllowedOrigins []string

	// Requests per second per patient (or per IP before login). Zero
	// disables rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/portal", func(portal chi.Router) {
		// Login is the only portal endpoint reachable without a session.
		if cfg.SessionHandler != nil {
			portal.Post("/session", cfg.SessionHandler.Login)
		}

		portal.Group(func(auth chi.Router) {
			auth.Use(httpmiddleware.PatientSession(cfg.SessionVerifier))
			if cfg.RateLimitPerSecond > 0 {
				auth.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}

			if cfg.SessionHandler != nil {
				auth.Delete("/session", cfg.SessionHandler.Logout)
			}

			if cfg.BookingHandler != nil {
				auth.Route("/appointments", func(r chi.Router) {
					r.Get("/available", cfg.BookingHandler.GetAvailable)
					r.Get("/upcoming", cfg.BookingHandler.GetUpcoming)
					r.Post("/{slotID}/reserve", cfg.BookingHandler.Reserve)
					r.Post("/{slotID}/cancel", cfg.BookingHandler.Cancel)
				})
			}

			if cfg.MessagingHandler != nil {
				auth.Route("/conversations", func(r chi.Router) {
					r.Get("/", cfg.MessagingHandler.GetConversations)
					r.Post("/{conversationID}/select", cfg.MessagingHandler.Select)
					r.Get("/{conversationID}/messages", cfg.MessagingHandler.GetMessages)
					r.Post("/{conversationID}/messages", cfg.MessagingHandler.Send)
				})
			}

			if cfg.ChatStream != nil {
				auth.Get("/chat/ws", cfg.ChatStream.HandleWebSocket)
			}
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
