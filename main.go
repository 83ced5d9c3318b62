package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/9expert-devsec/classroom-app-sub001/internal/dashboard"
	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/auth"
	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/db"
	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/logger"
	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/reqlog"
	"github.com/9expert-devsec/classroom-app-sub001/internal/programs"
)

func main() {
	// .env は任意（本番は環境変数を直接設定する）
	_ = godotenv.Load()

	// 設定読み込み
	cfg, err := db.LoadConfig(db.ConfigFilePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Fprintln(os.Stderr, "config: mode must be dev or release")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log, logger.DefaultServiceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("mode", cfg.Mode), zap.String("version", cfg.Version))

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()
	log.Info("connected to DB", zap.String("dbname", cfg.DB.DBName))

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		log.Info("migrations applied")
	}

	var lookup dashboard.ProgramLookup
	if cfg.Programs.BaseURL != "" {
		lookup = programs.NewClient(cfg.Programs.BaseURL, cfg.Programs.Timeout)
	} else {
		log.Warn("programs.base_url is empty; program metadata will use fallback icons only")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(reqlog.Middleware(log), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", reqlog.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", reqlog.HeaderRequestID},
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v2
	api := r.Group("/api/v2")
	if cfg.Auth.JWTSecret != "" {
		api.Use(auth.RequireAuth([]byte(cfg.Auth.JWTSecret), auth.DashboardRoles...))
	} else if cfg.Mode == "release" {
		log.Fatal("auth.jwt_secret is required in release mode")
	}
	dashboard.RegisterRoutes(api, dashboard.NewMySQLService(conn, lookup, log, cfg.Dashboard.ListLimit))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// TLS設定
	certFile := fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Cert)
	keyFile := fmt.Sprintf("config/tls/%s/%s", cfg.Mode, cfg.Certificate.Key)

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		var err error
		if cfg.Certificate.Cert == "" {
			err = srv.ListenAndServe()
		} else {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
