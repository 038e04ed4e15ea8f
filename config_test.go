package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	initLoggers("INFO")
	os.Exit(m.Run())
}

// clearBotEnv blanks every variable loadConfig reads so values from the
// host environment cannot leak into a test case.
func clearBotEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"API_ID", "API_HASH", "BOT_TOKEN", "ADMIN_USER_IDS", "SUPER_ADMIN_ID",
		"DATABASE_URL", "BOT_NAME", "MAX_FILE_SIZE", "ALLOWED_TORRENT_EXTENSIONS",
		"LOG_LEVEL", "WORKERS", "UPLOADS_PER_HOUR", "UPLOADS_PER_DAY", "TEMP_BAN_DURATION",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")

	cfg, err := loadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "test-token", cfg.BotToken)
	assert.Equal(t, int64(111), cfg.SuperAdminID)
	assert.Equal(t, []int64{111}, cfg.AdminUserIDs, "super admin is always in the admin set")
	assert.Equal(t, "bot.db", cfg.DatabaseURL)
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, []string{".torrent"}, cfg.AllowedExtensions)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 20, cfg.UploadsPerHour)
	assert.Equal(t, 100, cfg.UploadsPerDay)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr string
	}{
		{
			name:    "Missing BOT_TOKEN",
			setup:   func(t *testing.T) { t.Setenv("SUPER_ADMIN_ID", "111") },
			wantErr: "BOT_TOKEN is required",
		},
		{
			name:    "Missing SUPER_ADMIN_ID",
			setup:   func(t *testing.T) { t.Setenv("BOT_TOKEN", "test-token") },
			wantErr: "SUPER_ADMIN_ID is required",
		},
		{
			name: "Malformed SUPER_ADMIN_ID",
			setup: func(t *testing.T) {
				t.Setenv("BOT_TOKEN", "test-token")
				t.Setenv("SUPER_ADMIN_ID", "not-a-number")
			},
			wantErr: "invalid SUPER_ADMIN_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBotEnv(t)
			tt.setup(t)

			_, err := loadConfig()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_AdminIDList(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")
	t.Setenv("ADMIN_USER_IDS", "222, 333,444")

	cfg, err := loadConfig()
	assert.NoError(t, err)
	assert.Equal(t, []int64{222, 333, 444, 111}, cfg.AdminUserIDs)

	// Super admin already listed: no duplicate entry.
	t.Setenv("ADMIN_USER_IDS", "111,222")
	cfg, err = loadConfig()
	assert.NoError(t, err)
	assert.Equal(t, []int64{111, 222}, cfg.AdminUserIDs)
}

func TestLoadConfig_BadAdminIDList(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")
	t.Setenv("ADMIN_USER_IDS", "222,abc")

	_, err := loadConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_USER_IDS")
}

func TestLoadConfig_Extensions(t *testing.T) {
	clearBotEnv(t)
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("SUPER_ADMIN_ID", "111")
	t.Setenv("ALLOWED_TORRENT_EXTENSIONS", "torrent, .TOR")

	cfg, err := loadConfig()
	assert.NoError(t, err)
	assert.Equal(t, []string{".torrent", ".tor"}, cfg.AllowedExtensions)
}

func TestLoadConfig_InvalidNumbers(t *testing.T) {
	for _, name := range []string{"MAX_FILE_SIZE", "WORKERS", "UPLOADS_PER_HOUR"} {
		t.Run(name, func(t *testing.T) {
			clearBotEnv(t)
			t.Setenv("BOT_TOKEN", "test-token")
			t.Setenv("SUPER_ADMIN_ID", "111")
			t.Setenv(name, "-3")

			_, err := loadConfig()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg := Config{MaxFileSize: 50}
	assert.Equal(t, int64(50*1024*1024), cfg.MaxFileSizeBytes())
}
