package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/aathi-11/university-voting-portal/internal/backup"
	"github.com/aathi-11/university-voting-portal/internal/config"
	"github.com/aathi-11/university-voting-portal/internal/database"
	"github.com/aathi-11/university-voting-portal/internal/logging"
	"github.com/aathi-11/university-voting-portal/internal/mailer"
	"github.com/aathi-11/university-voting-portal/internal/router"
	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

func main() {
	// load configuration
	cfg, err := config.Load(os.Getenv("VOTE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := ensureDir(filepath.Dir(cfg.Log.File)); err != nil {
		log.Fatalf("create log dir: %v", err)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	if cfg.UsesDevSecrets() {
		logger.Warn("running with development secrets; set VOTE_JWT_SECRET, VOTE_SECURITY_ENCRYPTION_SECRET and VOTE_SECURITY_ADMIN_KEY")
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	voteKey := util.DeriveVoteKey(cfg.Security.EncryptionSecret)
	signKey := []byte(cfg.JWT.Secret)

	mail := mailer.NewSMTP(cfg.Mail, cfg.OTP.TTLMinutes)
	auth, err := service.NewAuth(st, mail, service.AuthOptions{
		JWTSecret:  cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		TokenTTL:   time.Duration(cfg.JWT.ExpireHours) * time.Hour,
		CodeTTL:    time.Duration(cfg.OTP.TTLMinutes) * time.Minute,
		BcryptCost: cfg.Security.BcryptCost,
		AdminKey:   cfg.Security.AdminKey,
	}, logger)
	if err != nil {
		logger.Error("init auth", "error", err)
		os.Exit(1)
	}
	ballots := service.NewBallots(st, voteKey, signKey, logger)
	tally := service.NewTally(st, signKey, logger)

	if cfg.Admin.SeedOnStart {
		if _, _, err := auth.SeedAdmin(cfg.Admin.Roll, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Error("seed admin", "error", err)
			os.Exit(1)
		}
	}

	backups := backup.NewManager(st, voteKey, cfg.Backup.Dir, logger)
	if existing, err := backups.List(); err == nil && len(existing) > 0 {
		logger.Info("backups found", "count", len(existing), "latest", existing[0].Name, "size", existing[0].HumanSize)
	}
	if cfg.Backup.Schedule != "" {
		sched, err := backup.NewScheduler(backups, cfg.Backup.Schedule, logger)
		if err != nil {
			logger.Error("backup schedule", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	r := router.SetupRouter(cfg, router.Services{
		Store:   st,
		Auth:    auth,
		Ballots: ballots,
		Tally:   tally,
	}, logger)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("run server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// openStore picks the persistence backend named by storage.driver.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	var backend store.Backend
	switch cfg.Storage.Driver {
	case "database":
		db, err := database.Init(cfg.Database)
		if err != nil {
			return nil, err
		}
		gb, err := store.NewGormBackend(db)
		if err != nil {
			return nil, err
		}
		backend = gb
	default:
		jb, err := store.NewJSONBackend(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		backend = jb
	}
	return store.Open(backend, logger)
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
