package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers/admins"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers/users"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
)

// Controllers bundles the constructed handler sets the router wires up.
type Controllers struct {
	Cron           *controllers.CronController
	UserTasks      *users.TaskController
	UserPoints     *users.PointsController
	AdminTasks     *admins.TaskController
	AdminSchedules *admins.ScheduleController
	AdminMembers   *admins.MemberController
	AdminPoints    *admins.PointsController
}

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "duty-api",
	})
}

func InitRouter(c Controllers) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks (root level)
	r.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// CORS - origins from CORS_ALLOWED_ORIGINS (comma-separated) or defaults
	origins := []string{"http://localhost:3000", "http://localhost:8080"}
	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		for _, p := range strings.Split(originsEnv, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-CRON-KEY", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/v3").Subrouter()

	// Catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	api.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// Cron sweep (protected via X-CRON-KEY header): 120/hour is plenty for a
	// five-minute cadence with retries
	cronLimiter := middleware.NewIPRateLimiter(120, time.Hour)
	api.Handle("/cron/sweep", cronLimiter.Middleware(http.HandlerFunc(c.Cron.Sweep))).Methods(http.MethodPost)

	UsersRoutes(api, c)
	SetAdminRoutes(api, c)

	return r
}
