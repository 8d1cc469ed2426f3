package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"factory-assistant/config"
	"factory-assistant/internal/application"
	"factory-assistant/internal/domain"
	"factory-assistant/internal/grammar"
	"factory-assistant/internal/infra/anthropic"
	"factory-assistant/internal/infra/audio"
	"factory-assistant/internal/infra/factory"
	"factory-assistant/internal/infra/gemini"
	"factory-assistant/internal/infra/gtts"
	"factory-assistant/internal/infra/openai"
	"factory-assistant/internal/infra/pushover"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	catalog := cfg.BuildCatalog()

	source := createCommandSource(cfg.Audio, logger)
	interpreter := createInterpreter(cfg, catalog, logger)

	factoryClient := factory.NewClient(cfg.Factory.BaseURL)

	var stt application.SpeechToText = &application.NoopSTT{}
	if cfg.OpenAI.APIKey != "" {
		stt = openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language)
	}

	speech := gtts.NewClient()

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	resolver := application.NewQueryResolver(catalog)
	dispatcher := application.NewActionDispatcher(factoryClient, factoryClient, catalog, logger)

	assistant := application.NewAssistant(
		source,
		stt,
		interpreter,
		resolver,
		dispatcher,
		factoryClient,
		speech,
		speech,
		notifier,
		cfg.Factory.Token,
		cfg.OpenAI.Language,
		logger,
	)

	logger.Info("starting factory assistant",
		"command_source", cfg.Audio.Source,
		"interpreter", cfg.Interpreter.Strategy,
		"factory", cfg.Factory.BaseURL,
	)

	if err := assistant.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("assistant error", "error", err)
		os.Exit(1)
	}
}

func createCommandSource(cfg config.AudioConfig, logger *slog.Logger) application.CommandSource {
	switch cfg.Source {
	case "http":
		return audio.NewHTTPSource(cfg.HTTPAddr, logger)
	case "file":
		return audio.NewFileSource(cfg.FileDir)
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, logger)
	default:
		logger.Warn("unknown command source, using http", "source", cfg.Source)
		return audio.NewHTTPSource(cfg.HTTPAddr, logger)
	}
}

func createInterpreter(cfg *config.Config, catalog *domain.Catalog, logger *slog.Logger) application.Interpreter {
	switch cfg.Interpreter.Strategy {
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			logger.Warn("gemini strategy selected but no API key, using grammar")
			return grammar.NewMatcher(catalog)
		}
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, catalog)
	case "claude":
		if cfg.Anthropic.APIKey == "" {
			logger.Warn("claude strategy selected but no API key, using grammar")
			return grammar.NewMatcher(catalog)
		}
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, catalog)
	case "grammar":
		return grammar.NewMatcher(catalog)
	default:
		logger.Warn("unknown interpreter strategy, using grammar", "strategy", cfg.Interpreter.Strategy)
		return grammar.NewMatcher(catalog)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
