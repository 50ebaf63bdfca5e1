package config

import (
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NodeID distinguishes log output of multiple instances sharing a sink.
var NodeID = RandomID()[0:8]

// RootLogger is the base zap logger all component loggers derive from.
var RootLogger = newRootLogger()

func newRootLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.With(zap.String("node", NodeID))
}

// RandomID returns a random identifier suitable for correlating log records.
func RandomID() string {
	return uuid.New().String()
}

// GetEnvOrDefault returns the value of an environment variable, or a
// default when unset or empty.
func GetEnvOrDefault(name, defaultValue string) string {
	envVal := os.Getenv(name)
	if len(envVal) == 0 {
		return defaultValue
	}
	return envVal
}
