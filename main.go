package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers/admins"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/controllers/users"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/database"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/middleware"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/repository"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/routes"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/services"
	"github.com/pdcarlson/taunufiji-dot-app-sub001/utils"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	// Validate required environment variables
	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "JWT_SECRET"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Println("Running in development mode - performing auto-migration")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Println("Auto-migration completed successfully")
	} else {
		log.Println("Running in production mode - skipping auto-migration")
	}

	// Repositories
	taskRepo := repository.NewTaskRepo(db)
	scheduleRepo := repository.NewScheduleRepo(db)
	memberRepo := repository.NewMemberRepo(db)
	ledgerRepo := repository.NewLedgerRepo(db)

	// Adapters
	identity := utils.NewDBIdentity(db)
	notifier := utils.NewChatNotifier()
	proofs := utils.NewProofStore()

	// Services
	bus := services.NewEventBus()
	scheduler := services.NewSchedulerService(taskRepo, scheduleRepo)
	lifecycle := services.NewTaskLifecycleService(taskRepo, scheduleRepo, memberRepo, identity, proofs, scheduler, bus)
	ledger := services.NewPointsLedgerService(memberRepo, ledgerRepo, utils.RedisClient)
	sweeper := services.NewSweeper(taskRepo, scheduleRepo, scheduler, bus, fineAmount())

	// Event handlers subscribe once, before the first request can publish
	services.RegisterEventHandlers(bus, ledger, memberRepo, notifier, os.Getenv("NOTIFY_CHANNEL_ID"))

	router := routes.InitRouter(routes.Controllers{
		Cron:           controllers.NewCronController(sweeper, scheduler),
		UserTasks:      users.NewTaskController(lifecycle, taskRepo, memberRepo, proofs),
		UserPoints:     users.NewPointsController(ledger, memberRepo),
		AdminTasks:     admins.NewTaskController(lifecycle, taskRepo, proofs),
		AdminSchedules: admins.NewScheduleController(scheduleRepo, scheduler),
		AdminMembers:   admins.NewMemberController(memberRepo),
		AdminPoints:    admins.NewPointsController(ledger),
	})

	// Wrap router with global middleware in recommended order
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.RecoveryMiddleware(router),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// fineAmount is the debit applied when an assigned duty expires.
func fineAmount() int {
	if s := os.Getenv("FINE_POINTS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			return v
		}
	}
	return 5
}
