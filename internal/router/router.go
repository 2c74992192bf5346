package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/acl"
	"github.com/aathi-11/university-voting-portal/internal/config"
	"github.com/aathi-11/university-voting-portal/internal/handler"
	"github.com/aathi-11/university-voting-portal/internal/middleware"
	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/store"
)

// Services are the core components the HTTP surface drives.
type Services struct {
	Store   *store.Store
	Auth    *service.Auth
	Ballots *service.Ballots
	Tally   *service.Tally
}

// SetupRouter builds the gin engine with the full /api route table.
func SetupRouter(cfg *config.Config, svc Services, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLog(logger), gin.Recovery())

	authHandler := handler.NewAuthHandler(svc.Auth, svc.Store, cfg.Admin, logger)
	voteHandler := handler.NewVoteHandler(svc.Ballots, logger)
	resultsHandler := handler.NewResultsHandler(svc.Tally, svc.Ballots, logger)
	userHandler := handler.NewUserHandler(svc.Store)

	api := r.Group("/api")

	// public
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/verify-otp", authHandler.VerifyOTP)
	api.POST("/seed-admin", authHandler.SeedAdmin)
	api.GET("/announced-results", resultsHandler.AnnouncedResults)

	// authenticated
	protected := api.Group("")
	protected.Use(middleware.Authenticate(svc.Auth))

	protected.GET("/me", authHandler.Me)
	protected.GET("/encoded-token", authHandler.EncodedToken)

	protected.POST("/vote", middleware.RequirePermission(acl.CastVote), voteHandler.CastVote)

	tally := protected.Group("", middleware.RequirePermission(acl.ViewTally))
	tally.GET("/results", resultsHandler.Results)
	tally.GET("/results/export.csv", resultsHandler.ExportCSV)
	tally.GET("/results/export.xlsx", resultsHandler.ExportXLSX)

	protected.POST("/announce-results", middleware.RequirePermission(acl.AnnounceTally), resultsHandler.Announce)
	protected.GET("/users", middleware.RequirePermission(acl.ListSubjects), userHandler.ListUsers)

	return r
}
