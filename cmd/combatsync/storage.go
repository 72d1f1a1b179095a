package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/blasternet/combatsync/internal/api"
	"github.com/blasternet/combatsync/internal/config"
	"github.com/blasternet/combatsync/internal/storage"
)

func createStorageBackend(logger *slog.Logger, dbLog zerolog.Logger) (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()
	if storageCfg.Type == "websocket" {
		if storageCfg.WebSocket.URL == "" {
			storageCfg.WebSocket.URL = httpToWS(config.GetString("api.serverUrl")) + "/api"
		}
		if storageCfg.WebSocket.Secret == "" {
			storageCfg.WebSocket.Secret = config.GetString("api.apiKey")
		}
	}

	backend, err := storage.NewBackend(storage.Dependencies{
		Logger: logger,
		DBLog:  dbLog,
		DB:     config.GetDBConfig(),
	}, storageCfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, err
	}
	logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}

// uploadExport sends the last exported match file to the web service when
// the backend produced one and the service answers its healthcheck.
func uploadExport(ctx context.Context, logger *slog.Logger, backend storage.Backend) {
	u, ok := backend.(storage.Uploadable)
	if !ok || u.GetExportedFilePath() == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		logger.Info("Telemetry service is offline, keeping export on disk", "path", u.GetExportedFilePath())
		return
	}
	path, meta := u.GetExportedFilePath(), u.GetExportMetadata()
	if err := client.Upload(ctx, path, meta); err != nil {
		if api.IsUnauthorized(err) {
			logger.Error("Telemetry service rejected the API key", "path", path)
			return
		}
		logger.Error("Failed to upload export", "path", path, "error", err)
		return
	}
	logger.Info("Uploaded export", "path", path, "match", meta.MatchKey)
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
