package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/photodrop/backend/internal/api"
	"github.com/photodrop/backend/internal/config"
	"github.com/photodrop/backend/internal/convert"
	"github.com/photodrop/backend/internal/history"
	"github.com/photodrop/backend/internal/pipeline"
	"github.com/photodrop/backend/internal/policy"
	"github.com/photodrop/backend/internal/session"
	"github.com/photodrop/backend/internal/storage"
	"github.com/photodrop/backend/internal/uploader"
	"github.com/photodrop/backend/internal/watcher"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "PhotoDrop.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Preparation policy: defaults plus optional YAML overrides
	pol, err := policy.Load(cfg.Storage.PolicyFile)
	if err != nil {
		fmt.Printf("Failed to load policy: %v\n", err)
		os.Exit(1)
	}

	// Staging storage
	fileStore, err := storage.NewLocalStore(cfg.Storage.StagingDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Submission history
	historyStore, err := history.NewDuckStore(cfg.Storage.HistoryDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize history store: %v\n", err)
		os.Exit(1)
	}
	defer historyStore.Close()

	// Preparation pipeline and outbound upload client
	preparer := pipeline.NewPreparer(convert.NewHeifConverter(), pol)
	uploadClient := uploader.NewClient(cfg.Upload.Endpoint, time.Duration(cfg.Upload.TimeoutSeconds)*time.Second)

	// Submission manager
	sessionMgr := session.NewManager(fileStore, preparer, uploadClient, historyStore, pol)

	// Background submission cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sessionMgr.CleanupOldSubmissions(time.Duration(cfg.Processing.SessionTimeoutMinutes) * time.Minute)
		}
	}()

	// Drop-folder watcher (optional)
	if cfg.Storage.WatchDirectory != "" {
		w, err := watcher.New(cfg.Storage.WatchDirectory, fileStore, sessionMgr)
		if err != nil {
			fmt.Printf("Failed to create drop-folder watcher: %v\n", err)
			os.Exit(1)
		}
		if err := w.Start(); err != nil {
			fmt.Printf("Failed to start drop-folder watcher: %v\n", err)
			os.Exit(1)
		}
		defer w.Stop()
	}

	// API handlers
	handlers := api.NewHandlers(&api.Dependencies{
		Store:     fileStore,
		Manager:   sessionMgr,
		Historian: historyStore,
		Policy:    pol,
		Version:   Version,
	})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, handlers)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           PhotoDrop Submission Server                     ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Endpoint:  %-46s║\n", cfg.Upload.Endpoint)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	e.Logger.Fatal(e.StartServer(s))
}
