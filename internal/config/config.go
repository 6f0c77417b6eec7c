package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Addr        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	Maintainers []string
}

func Load() Config {
	addr := envString("MINIBLOG_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	cfg := Config{
		Addr:        addr,
		DBPath:      envString("MINIBLOG_DB", "miniblog.db"),
		JWTSecret:   envString("MINIBLOG_JWT_SECRET", "dev-jwt-secret"),
		TokenTTL:    envDuration("MINIBLOG_TOKEN_TTL", 30*time.Minute),
		Maintainers: envList("MINIBLOG_MAINTAINERS", []string{"dim"}),
	}

	return cfg
}

// IsMaintainer reports whether a username is on the maintainer allow-list.
func (c Config) IsMaintainer(username string) bool {
	for _, name := range c.Maintainers {
		if name == username {
			return true
		}
	}
	return false
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}
