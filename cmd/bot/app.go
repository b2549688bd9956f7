package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unillama15/fergun/internal/bridge"
	"github.com/unillama15/fergun/internal/commandcache"
	"github.com/unillama15/fergun/internal/commands"
	"github.com/unillama15/fergun/internal/driver/discord"
	"github.com/unillama15/fergun/internal/responder"
)

const (
	envConfigFile   = "FERGUN_CONFIG_FILE"
	envDiscordToken = "FERGUN_DISCORD_TOKEN"

	defaultConfigFilePath   = "config/bot.json"
	alternateConfigFilePath = "bin/config/bot.json"

	defaultCacheCapacity   = 1024
	defaultShutdownTimeout = 10 * time.Second
)

type appConfig struct {
	logLevel slog.Level

	discordToken     string
	messageCacheSize int
	commandPrefix    string

	cacheCapacity      int
	cacheMaxAge        time.Duration
	cacheSweepInterval time.Duration

	shutdownTimeout time.Duration
}

type fileConfig struct {
	LogLevel        string             `json:"log_level"`
	ShutdownTimeout string             `json:"shutdown_timeout"`
	Discord         fileDiscordConfig  `json:"discord"`
	Cache           fileCacheConfig    `json:"cache"`
	Commands        fileCommandsConfig `json:"commands"`
}

type fileDiscordConfig struct {
	Token            string `json:"token"`
	MessageCacheSize *int   `json:"message_cache_size"`
}

type fileCacheConfig struct {
	Capacity      *int   `json:"capacity"`
	MaxAge        string `json:"max_age"`
	SweepInterval string `json:"sweep_interval"`
}

type fileCommandsConfig struct {
	Prefix string `json:"prefix"`
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))

	gateway, err := discord.New(
		discord.Config{Token: cfg.discordToken, MessageCacheSize: cfg.messageCacheSize},
		discord.WithLogger(logger.With("component", "discord")),
	)
	if err != nil {
		return fmt.Errorf("build discord driver: %w", err)
	}

	cache, err := commandcache.New(
		commandcache.Config{
			Capacity:      cfg.cacheCapacity,
			MaxAge:        cfg.cacheMaxAge,
			SweepInterval: cfg.cacheSweepInterval,
		},
		commandcache.WithLogger(logger.With("component", "commandcache")),
	)
	if err != nil {
		return fmt.Errorf("build command cache: %w", err)
	}
	defer func() {
		if closeErr := cache.Close(); closeErr != nil {
			logger.Warn("close command cache", "error", closeErr)
		}
	}()

	respond, err := responder.New(gateway, cache, responder.WithLogger(logger.With("component", "responder")))
	if err != nil {
		return fmt.Errorf("build responder: %w", err)
	}

	router, err := commands.NewRouter(cfg.commandPrefix, commands.WithLogger(logger.With("component", "commands")))
	if err != nil {
		return fmt.Errorf("build command router: %w", err)
	}
	if err := commands.RegisterBuiltins(router, respond); err != nil {
		return fmt.Errorf("register builtin commands: %w", err)
	}

	eventBridge, err := bridge.New(gateway, cache, router.Dispatch, bridge.WithLogger(logger.With("component", "bridge")))
	if err != nil {
		return fmt.Errorf("build event bridge: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unsubscribeCreated := gateway.SubscribeMessageCreated(router.Dispatch)
	eventBridge.Start()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return gateway.Start(groupCtx)
	})

	runErr := group.Wait()

	unsubscribeCreated()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()
	if closeErr := eventBridge.Close(shutdownCtx); closeErr != nil {
		logger.Warn("close event bridge", "error", closeErr)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run discord driver: %w", runErr)
	}

	return nil
}

func loadConfig() (appConfig, error) {
	cfg := defaultAppConfig()
	configFile, err := resolveConfigFilePath()
	if err != nil {
		return appConfig{}, err
	}

	if err := applyConfigFile(&cfg, configFile); err != nil {
		return appConfig{}, err
	}
	if token := strings.TrimSpace(os.Getenv(envDiscordToken)); token != "" {
		cfg.discordToken = token
	}
	if err := validateAppConfig(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("validate config file %s: %w", configFile, err)
	}

	return cfg, nil
}

func resolveConfigFilePath() (string, error) {
	if configFile := strings.TrimSpace(os.Getenv(envConfigFile)); configFile != "" {
		return configFile, nil
	}

	candidates := []string{defaultConfigFilePath, alternateConfigFilePath}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config file %s is a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf(
		"config file not found; create %s or %s, or set %s",
		defaultConfigFilePath,
		alternateConfigFilePath,
		envConfigFile,
	)
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel: slog.LevelInfo,

		commandPrefix: commands.DefaultPrefix,

		cacheCapacity:      defaultCacheCapacity,
		cacheMaxAge:        commandcache.DefaultMaxAge,
		cacheSweepInterval: commandcache.DefaultSweepInterval,

		shutdownTimeout: defaultShutdownTimeout,
	}
}

func applyConfigFile(cfg *appConfig, path string) error {
	if cfg == nil {
		return fmt.Errorf("apply config file: nil config")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if rawLevel := strings.TrimSpace(parsed.LogLevel); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		cfg.logLevel = level
	}

	if rawTimeout := strings.TrimSpace(parsed.ShutdownTimeout); rawTimeout != "" {
		timeout, err := time.ParseDuration(rawTimeout)
		if err != nil {
			return fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("parse shutdown_timeout: must be > 0")
		}
		cfg.shutdownTimeout = timeout
	}

	cfg.discordToken = strings.TrimSpace(parsed.Discord.Token)
	if parsed.Discord.MessageCacheSize != nil {
		if *parsed.Discord.MessageCacheSize <= 0 {
			return fmt.Errorf("parse discord.message_cache_size: must be > 0")
		}
		cfg.messageCacheSize = *parsed.Discord.MessageCacheSize
	}

	if parsed.Cache.Capacity != nil {
		if *parsed.Cache.Capacity <= 0 {
			return fmt.Errorf("parse cache.capacity: must be > 0")
		}
		cfg.cacheCapacity = *parsed.Cache.Capacity
	}
	if rawMaxAge := strings.TrimSpace(parsed.Cache.MaxAge); rawMaxAge != "" {
		maxAge, err := time.ParseDuration(rawMaxAge)
		if err != nil {
			return fmt.Errorf("parse cache.max_age: %w", err)
		}
		if maxAge <= 0 {
			return fmt.Errorf("parse cache.max_age: must be > 0")
		}
		cfg.cacheMaxAge = maxAge
	}
	if rawInterval := strings.TrimSpace(parsed.Cache.SweepInterval); rawInterval != "" {
		interval, err := time.ParseDuration(rawInterval)
		if err != nil {
			return fmt.Errorf("parse cache.sweep_interval: %w", err)
		}
		if interval <= 0 {
			return fmt.Errorf("parse cache.sweep_interval: must be > 0")
		}
		cfg.cacheSweepInterval = interval
	}

	if prefix := strings.TrimSpace(parsed.Commands.Prefix); prefix != "" {
		cfg.commandPrefix = prefix
	}

	return nil
}

func validateAppConfig(cfg *appConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.discordToken == "" {
		return fmt.Errorf("discord.token is required (or set %s)", envDiscordToken)
	}

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}
