package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"course-planner/internal/ai"
	"course-planner/internal/api"
	"course-planner/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	configureLogging(cfg.Logging)

	if !cfg.Store.Disabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}

	server, err := api.NewServer(api.Config{
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		DefaultAPIKey:      cfg.Gemini.APIKey,
		Gemini: ai.Config{
			BaseURL:         cfg.Gemini.BaseURL,
			Model:           cfg.Gemini.Model,
			Timeout:         cfg.Gemini.Timeout,
			SearchGrounding: cfg.Gemini.SearchGrounding,
			DebugDumpPath:   cfg.Gemini.DebugDumpPath,
		},
		StorePath:     cfg.Store.Path,
		StoreDisabled: cfg.Store.Disabled,
		SilentDB:      cfg.Logging.Level != "debug",
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.Router()

	port := strconv.Itoa(cfg.Server.Port)
	logrus.WithFields(logrus.Fields{
		"model":   cfg.Gemini.Model,
		"history": !cfg.Store.Disabled,
	}).Infof("starting course-planner on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
