package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
)

// UsersRoutes registers the member-facing surface. Every route requires a
// member token; members never see locked tasks or other members' ledgers.
func UsersRoutes(api *mux.Router, c Controllers) {
	userLimiter := middleware.NewIPRateLimiter(120, time.Minute)

	userRouter := api.PathPrefix("/users").Subrouter()
	userRouter.Use(userLimiter.Middleware)
	userRouter.Use(middleware.AuthMiddleware)

	userRouter.Handle("/tasks", http.HandlerFunc(c.UserTasks.List)).Methods(http.MethodGet)
	userRouter.Handle("/tasks/{id:[0-9]+}/claim", http.HandlerFunc(c.UserTasks.Claim)).Methods(http.MethodPost)
	userRouter.Handle("/tasks/{id:[0-9]+}/proof", http.HandlerFunc(c.UserTasks.SubmitProof)).Methods(http.MethodPost)
	userRouter.Handle("/tasks/{id:[0-9]+}/unclaim", http.HandlerFunc(c.UserTasks.Unclaim)).Methods(http.MethodPost)

	userRouter.Handle("/points", http.HandlerFunc(c.UserPoints.My)).Methods(http.MethodGet)
	userRouter.Handle("/leaderboard", http.HandlerFunc(c.UserPoints.Leaderboard)).Methods(http.MethodGet)
	userRouter.Handle("/rank", http.HandlerFunc(c.UserPoints.Rank)).Methods(http.MethodGet)
}
