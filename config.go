package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDatabaseURL     = "bot.db"
	defaultMaxFileSizeMB   = 2048
	defaultWorkers         = 4
	defaultUploadsPerHour  = 20
	defaultUploadsPerDay   = 100
	defaultTempBanDuration = time.Hour
)

// Config holds all runtime settings, loaded once at startup and passed
// around by value. Nothing reads the environment after loadConfig returns.
type Config struct {
	APIID    int
	APIHash  string
	BotToken string

	AdminUserIDs []int64
	SuperAdminID int64

	DatabaseURL string

	BotName           string
	MaxFileSize       int64 // MB
	AllowedExtensions []string
	LogLevel          string
	Workers           int

	UploadsPerHour  int
	UploadsPerDay   int
	TempBanDuration time.Duration
}

// loadConfig reads configuration from the environment (and an optional .env
// file). Missing transport credentials or SUPER_ADMIN_ID are startup errors.
func loadConfig() (Config, error) {
	// A missing .env file is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := Config{
		APIHash:     strings.TrimSpace(os.Getenv("API_HASH")),
		BotToken:    strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BotName:     strings.TrimSpace(os.Getenv("BOT_NAME")),
		LogLevel:    strings.TrimSpace(os.Getenv("LOG_LEVEL")),
	}

	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}

	if raw := strings.TrimSpace(os.Getenv("API_ID")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid API_ID %q: %w", raw, err)
		}
		cfg.APIID = id
	}

	superAdmin := strings.TrimSpace(os.Getenv("SUPER_ADMIN_ID"))
	if superAdmin == "" {
		return cfg, fmt.Errorf("SUPER_ADMIN_ID is required")
	}
	id, err := strconv.ParseInt(superAdmin, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("invalid SUPER_ADMIN_ID %q: %w", superAdmin, err)
	}
	cfg.SuperAdminID = id

	cfg.AdminUserIDs, err = parseIDList(os.Getenv("ADMIN_USER_IDS"))
	if err != nil {
		return cfg, fmt.Errorf("invalid ADMIN_USER_IDS: %w", err)
	}
	// The super admin is always part of the admin set.
	if !containsID(cfg.AdminUserIDs, cfg.SuperAdminID) {
		cfg.AdminUserIDs = append(cfg.AdminUserIDs, cfg.SuperAdminID)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.BotName == "" {
		cfg.BotName = "MedusaXD Torrent Downloader"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}

	cfg.MaxFileSize, err = parseIntOption("MAX_FILE_SIZE", defaultMaxFileSizeMB)
	if err != nil {
		return cfg, err
	}

	cfg.AllowedExtensions = parseExtensions(os.Getenv("ALLOWED_TORRENT_EXTENSIONS"))

	workers, err := parseIntOption("WORKERS", defaultWorkers)
	if err != nil {
		return cfg, err
	}
	cfg.Workers = int(workers)

	perHour, err := parseIntOption("UPLOADS_PER_HOUR", defaultUploadsPerHour)
	if err != nil {
		return cfg, err
	}
	cfg.UploadsPerHour = int(perHour)

	perDay, err := parseIntOption("UPLOADS_PER_DAY", defaultUploadsPerDay)
	if err != nil {
		return cfg, err
	}
	cfg.UploadsPerDay = int(perDay)

	cfg.TempBanDuration = defaultTempBanDuration
	if raw := strings.TrimSpace(os.Getenv("TEMP_BAN_DURATION")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid TEMP_BAN_DURATION %q: %w", raw, err)
		}
		cfg.TempBanDuration = d
	}

	return cfg, nil
}

// MaxFileSizeBytes converts the configured global ceiling from MB to bytes.
func (c Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSize * 1024 * 1024
}

// parseIDList parses a comma-separated list of numeric Telegram IDs.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseExtensions(raw string) []string {
	var exts []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		exts = append(exts, part)
	}
	if len(exts) == 0 {
		exts = []string{".torrent"}
	}
	return exts
}

func parseIntOption(name string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
