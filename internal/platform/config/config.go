// Package config loads process configuration from the environment once at
// startup. Everything downstream receives an explicit AppConfig value; no
// package reads env vars on its own.
package config

import (
	"errors"
	"os"
	"strings"
)

type HTTPConfig struct {
	Addr string
}

type NATSConfig struct {
	URL string
}

type AppConfig struct {
	ServiceName string
	Env         string // "production" enables fail-fast on missing backends
	LogLevel    string
	HTTP        HTTPConfig
	DatabaseURL string
	JWTSecret   string
	NATS        NATSConfig
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: getenv("SERVICE_NAME"),
		Env:         getenv("APP_ENV"),
		LogLevel:    getenv("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Addr: getenv("HTTP_ADDR"),
		},
		DatabaseURL: getenv("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET"),
		NATS: NATSConfig{
			URL: getenv("NATS_URL"),
		},
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "engagement"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return AppConfig{}, errors.New("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == "" {
			return AppConfig{}, errors.New("JWT_SECRET is required in production")
		}
	}
	return cfg, nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
