package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"dsymup/internal/config"
)

const logLevelEnvKey = "DSYMUP_LOG_LEVEL"

// logLevel is shared by the default handler so --verbose can lower it after setup.
var logLevel = new(slog.LevelVar)

// configureLoggerForCLI installs the default logger at the level chosen by
// flag, then env, then config. A bad flag is an error; a bad env or config
// value falls back to the default with a warning.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	envLevel := os.Getenv(logLevelEnvKey)
	raw, source := selectedLogLevel(flagLevel, envLevel, configLevel)

	level, err := parseLogLevel(raw)
	if err != nil {
		level, _ = parseLogLevel("")
		installLogger(level)
		switch source {
		case "flag":
			return "", fmt.Errorf("invalid --log-level %q", flagLevel)
		case "env":
			return fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel), nil
		case "config":
			return fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel), nil
		}
		return "", nil
	}
	installLogger(level)
	return "", nil
}

func selectedLogLevel(flagLevel, envLevel, configLevel string) (string, string) {
	switch {
	case strings.TrimSpace(flagLevel) != "":
		return flagLevel, "flag"
	case strings.TrimSpace(envLevel) != "":
		return envLevel, "env"
	case strings.TrimSpace(configLevel) != "":
		return configLevel, "config"
	}
	return "", "default"
}

// parseLogLevel accepts slog level names, "warning" and numeric levels.
// An empty value selects the default level.
func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = config.DefaultLogLevel
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}

	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func installLogger(level slog.Level) {
	logLevel.Set(level)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// enableVerbose lowers the active level to debug.
func enableVerbose() {
	if logLevel.Level() > slog.LevelDebug {
		logLevel.Set(slog.LevelDebug)
	}
}
