package api

import (
	"codetective/internal/api/handler"
	"codetective/internal/api/middleware"
	"codetective/internal/app/event"
	"codetective/internal/app/service"
	"codetective/internal/common/security"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	roomService *service.RoomService,
	gameService *service.GameService,
	gradingService *service.GradingService,
	taskService *service.TaskService,
	leaderboardService *service.LeaderboardService,
	bus *event.Bus,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	// Puts verified claims in context; Authenticator below enforces them
	// per route group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(authService)
	roomHandler := handler.NewRoomHandler(roomService)
	gameHandler := handler.NewGameHandler(gameService)
	submissionHandler := handler.NewSubmissionHandler(gameService, gradingService)
	taskHandler := handler.NewTaskHandler(taskService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	eventsHandler := handler.NewEventsHandler(bus)

	r.Route("/api/v1", func(v1 chi.Router) {
		// The request timeout stays off the websocket route below.
		v1.Use(chiMiddleware.Timeout(60 * time.Second))

		// Public entry points: nickname join, admin login, global
		// standings.
		v1.Route("/auth", func(auth chi.Router) {
			authHandler.RegisterRoutes(auth)
		})
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)

		// Everything else requires a token.
		v1.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticator)

			protected.Route("/profile", authHandler.RegisterProfileRoutes)
			protected.Route("/rooms", roomHandler.RegisterRoutes)
			protected.Route("/games", gameHandler.RegisterRoutes)
			protected.Route("/submissions", submissionHandler.RegisterRoutes)
			protected.Route("/catalog", taskHandler.RegisterRoutes)
		})
	})

	// Read-only event stream; the upgrade lives outside the timeout chain
	// so long-lived connections survive.
	r.Route("/ws", eventsHandler.RegisterRoutes)

	return r
}
