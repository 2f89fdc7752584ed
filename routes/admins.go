package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
)

func SetAdminRoutes(api *mux.Router, c Controllers) {
	// Rate limiter for admin login: 5 attempts per IP per minute
	adminLoginLimiter := middleware.NewIPRateLimiter(5, time.Minute)

	// Public admin routes
	api.Handle("/admin/login", adminLoginLimiter.Middleware(http.HandlerFunc(controllers.Login))).Methods(http.MethodPost)

	// Protected admin routes
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	adminRouter.Handle("/logout", http.HandlerFunc(controllers.Logout)).Methods(http.MethodPost)

	// Task management
	adminRouter.Handle("/tasks", http.HandlerFunc(c.AdminTasks.List)).Methods(http.MethodGet)
	adminRouter.Handle("/tasks", http.HandlerFunc(c.AdminTasks.Create)).Methods(http.MethodPost)
	adminRouter.Handle("/tasks/review", http.HandlerFunc(c.AdminTasks.ReviewQueue)).Methods(http.MethodGet)
	adminRouter.Handle("/tasks/{id:[0-9]+}", http.HandlerFunc(c.AdminTasks.Update)).Methods(http.MethodPut)
	adminRouter.Handle("/tasks/{id:[0-9]+}", http.HandlerFunc(c.AdminTasks.Delete)).Methods(http.MethodDelete)
	adminRouter.Handle("/tasks/{id:[0-9]+}/approve", http.HandlerFunc(c.AdminTasks.Approve)).Methods(http.MethodPost)
	adminRouter.Handle("/tasks/{id:[0-9]+}/reject", http.HandlerFunc(c.AdminTasks.Reject)).Methods(http.MethodPost)
	adminRouter.Handle("/tasks/{id:[0-9]+}/unclaim", http.HandlerFunc(c.UserTasks.Unclaim)).Methods(http.MethodPost)

	// Schedule management
	adminRouter.Handle("/schedules", http.HandlerFunc(c.AdminSchedules.List)).Methods(http.MethodGet)
	adminRouter.Handle("/schedules", http.HandlerFunc(c.AdminSchedules.Create)).Methods(http.MethodPost)
	adminRouter.Handle("/schedules/heal", http.HandlerFunc(c.AdminSchedules.Heal)).Methods(http.MethodPost)
	adminRouter.Handle("/schedules/{id:[0-9]+}", http.HandlerFunc(c.AdminSchedules.Update)).Methods(http.MethodPut)
	adminRouter.Handle("/schedules/{id:[0-9]+}/toggle", http.HandlerFunc(c.AdminSchedules.Toggle)).Methods(http.MethodPost)

	// Member management
	adminRouter.Handle("/members", http.HandlerFunc(c.AdminMembers.List)).Methods(http.MethodGet)
	adminRouter.Handle("/members", http.HandlerFunc(c.AdminMembers.Create)).Methods(http.MethodPost)
	adminRouter.Handle("/members/token", http.HandlerFunc(c.AdminMembers.IssueToken)).Methods(http.MethodPost)

	// Points management
	adminRouter.Handle("/members/{id:[0-9]+}/points", http.HandlerFunc(c.AdminPoints.Award)).Methods(http.MethodPost)
	adminRouter.Handle("/members/{id:[0-9]+}/ledger", http.HandlerFunc(c.AdminPoints.History)).Methods(http.MethodGet)
	adminRouter.Handle("/members/{id:[0-9]+}/reconcile", http.HandlerFunc(c.AdminPoints.Reconcile)).Methods(http.MethodGet)
}
