// Package automation registers the automation-facing HTTP routes.
package automation

import (
	"time"

	apphttp "github.com/deskpilot/deskpilot/internal/http"
	"github.com/deskpilot/deskpilot/internal/http/api/automation/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RosterService is the credential cache as used by the routes.
type RosterService interface {
	handlers.UserDirectory
	apphttp.CredentialStore
}

// AuthService runs login, logout and per-user credential checks.
type AuthService interface {
	handlers.AuthService
	handlers.UserAuthChecker
}

// Services carries the components behind the routes.
type Services struct {
	Roster       RosterService
	Desks        handlers.DeskService
	Booker       handlers.AllDaysBooker
	Reservations handlers.ReservationService
	Users        handlers.UserSearcher
	Auth         AuthService
	Preferences  handlers.PreferenceService
	Logs         handlers.LogSource

	// DB is pinged by /healthz when set.
	DB *gorm.DB
	// Location is the calendar request dates are read in.
	Location *time.Location
}

// NewEngine builds a gin engine with the middleware chain and every route registered.
func NewEngine(svc Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	RegisterRoutes(engine, svc)
	return engine
}

// RegisterRoutes installs the middleware chain and the automation routes on r.
func RegisterRoutes(r *gin.Engine, svc Services) {
	if r == nil {
		return
	}
	r.Use(
		apphttp.RequestIDMiddleware(),
		apphttp.RequestLogMiddleware(),
		apphttp.CredentialMiddleware(),
		apphttp.CredentialRefreshMiddleware(svc.Roster),
	)

	healthHandler := handlers.NewHealthHandler(svc.DB)
	r.GET("/healthz", healthHandler.Healthz)

	logsHandler := handlers.NewLogsHandler(svc.Logs)
	r.GET("/logs", logsHandler.List)

	authHandler := handlers.NewAuthHandler(svc.Auth)
	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/logout", authHandler.Logout)

	deskHandler := handlers.NewDeskHandler(svc.Desks, svc.Booker, svc.Roster, svc.Location)
	r.POST("/desks", deskHandler.List)
	r.POST("/desks/book", deskHandler.Book)
	r.POST("/desks/book-all-days", deskHandler.BookAllDays)

	reservationHandler := handlers.NewReservationHandler(svc.Reservations, svc.Location)
	r.POST("/reservations", reservationHandler.List)
	r.POST("/reservations/action", reservationHandler.Action)

	userHandler := handlers.NewUserHandler(svc.Users)
	r.POST("/users/search", userHandler.Search)

	cronConfigHandler := handlers.NewCronConfigHandler(svc.Preferences, svc.Auth)
	r.GET("/cron-configs", cronConfigHandler.List)
	r.POST("/cron-configs", cronConfigHandler.Update)
}
