package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the scheduled-mode and loader knobs.
const (
	DefaultTimeZone       = "America/New_York"
	DefaultIngestSchedule = "0 6 * * *" // daily, after the servicer's overnight drop
	DefaultBatchSize      = 2000
	DefaultFTPPort        = 990
	DefaultFTPTimeout     = 30 * time.Second
	DefaultOpsListenAddr  = ":8081"
)

// FTPHost, FTPUsername, FTPPassword, FTPRemoteDir come straight from env.
func FTPHost() string      { return strings.TrimSpace(os.Getenv("FTP_HOST")) }
func FTPUsername() string  { return strings.TrimSpace(os.Getenv("FTP_USERNAME")) }
func FTPPassword() string  { return os.Getenv("FTP_PASSWORD") }
func FTPRemoteDir() string { return strings.TrimSpace(os.Getenv("FTP_REMOTE_DIR")) }

func FTPPort() int {
	return envInt("FTP_PORT", DefaultFTPPort)
}

// FTPImplicitTLS defaults to true: the servicer's endpoint requires
// encryption before the protocol handshake.
func FTPImplicitTLS() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FTP_IMPLICIT_TLS")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes"
}

// DatabaseURL prefers DATABASE_URL and falls back to the discrete DB_* vars.
func DatabaseURL() string {
	if u := strings.TrimSpace(os.Getenv("DATABASE_URL")); u != "" {
		return u
	}
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	name := os.Getenv("DB_NAME")
	if host == "" {
		return ""
	}
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(user), url.QueryEscape(pass), host, port, name)
}

func IngestSchedule() string {
	if s := strings.TrimSpace(os.Getenv("INGEST_SCHEDULE")); s != "" {
		return s
	}
	return DefaultIngestSchedule
}

func TimeZone() string {
	if tz := strings.TrimSpace(os.Getenv("INGEST_TIMEZONE")); tz != "" {
		return tz
	}
	return DefaultTimeZone
}

func OpsListenAddr() string {
	if a := strings.TrimSpace(os.Getenv("OPS_LISTEN_ADDR")); a != "" {
		return a
	}
	return DefaultOpsListenAddr
}

// FeedOverridesPath points at the optional YAML alias/header override file.
func FeedOverridesPath() string {
	if p := strings.TrimSpace(os.Getenv("FEED_OVERRIDES")); p != "" {
		return p
	}
	return "feed_overrides.yaml"
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
