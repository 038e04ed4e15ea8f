package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Bot struct {
	tgBot            TelegramClient
	store            *Store
	auth             *AuthManager
	validator        *TorrentValidator
	config           Config
	clock            Clock
	httpClient       *http.Client
	uploadLimiters   map[int64]*uploadLimiter
	uploadLimitersMu sync.Mutex
}

// NewBot wires the store, authorizer and validator together and seeds the
// configured admin identities so they hold the admin role from the first
// interaction on.
func NewBot(store *Store, config Config, clock Clock, tgClient TelegramClient) (*Bot, error) {
	b := &Bot{
		tgBot:          tgClient,
		store:          store,
		auth:           NewAuthManager(store, config.SuperAdminID),
		validator:      NewTorrentValidator(config.AllowedExtensions),
		config:         config,
		clock:          clock,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		uploadLimiters: make(map[int64]*uploadLimiter),
	}

	for _, adminID := range config.AdminUserIDs {
		if _, err := store.UpsertUser(adminID, "", "", "", true); err != nil {
			return nil, fmt.Errorf("seed admin %d: %w", adminID, err)
		}
	}

	return b, nil
}

func (b *Bot) Start(ctx context.Context) {
	b.tgBot.Start(ctx)
}

func initTelegramBot(token string, workers int, handleUpdate func(ctx context.Context, tgBot *bot.Bot, update *models.Update)) (TelegramClient, error) {
	opts := []bot.Option{
		bot.WithDefaultHandler(handleUpdate),
		bot.WithWorkers(workers),
	}

	tgBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}

	return tgBot, nil
}

func (b *Bot) sendResponse(ctx context.Context, chatID int64, text string) error {
	return b.sendWithKeyboard(ctx, chatID, text, nil)
}

func (b *Bot) sendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.tgBot.SendMessage(ctx, params)
	if err != nil {
		ErrorLogger.Printf("Error sending message to chat %d: %v", chatID, err)
		return err
	}
	return nil
}

// downloadFile fetches the uploaded document's bytes through the Bot API
// file endpoint.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.tgBot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}

	url := b.tgBot.FileDownloadLink(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: unexpected status %s", fileID, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

// effectiveMaxBytes resolves the size ceiling for a chat: the per-chat
// override when set, else the global default.
func (b *Bot) effectiveMaxBytes(settings *ChatSettings) int64 {
	if settings != nil && settings.MaxFileSize > 0 {
		return settings.MaxFileSize * 1024 * 1024
	}
	return b.config.MaxFileSizeBytes()
}

// sendUserStats replies with the sender's upload statistics.
func (b *Bot) sendUserStats(ctx context.Context, chatID, userID int64) {
	stats, err := b.store.UserStats(userID)
	if err != nil {
		ErrorLogger.Printf("Error fetching stats for user %d: %v", userID, err)
		b.sendResponse(ctx, chatID, "Sorry, I couldn't retrieve your statistics right now.")
		return
	}

	recent, err := b.store.UserUploads(userID, 5)
	if err != nil {
		ErrorLogger.Printf("Error fetching uploads for user %d: %v", userID, err)
		b.sendResponse(ctx, chatID, "Sorry, I couldn't retrieve your statistics right now.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Your Statistics\n\n")
	fmt.Fprintf(&sb, "- Total Uploads: %d\n", stats.Uploads)
	fmt.Fprintf(&sb, "- Total Size: %s\n", formatFileSize(stats.TotalSize))
	sb.WriteString("\nRecent Uploads:\n")
	if len(recent) == 0 {
		sb.WriteString("No uploads yet.")
	}
	for _, upload := range recent {
		fmt.Fprintf(&sb, "• %s (%s)\n", upload.FileName, formatFileSize(upload.FileSize))
	}

	b.sendResponse(ctx, chatID, sb.String())
}

// sendGlobalStats replies with deployment-wide statistics (admin panel).
func (b *Bot) sendGlobalStats(ctx context.Context, chatID int64) {
	stats, err := b.store.GlobalStats()
	if err != nil {
		ErrorLogger.Printf("Error fetching global stats: %v", err)
		b.sendResponse(ctx, chatID, "Sorry, I couldn't retrieve the stats at this time.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Global Statistics\n\n")
	fmt.Fprintf(&sb, "- Total Users: %d\n", stats.TotalUsers)
	fmt.Fprintf(&sb, "- Active Users (7d): %d\n", stats.ActiveUsers)
	fmt.Fprintf(&sb, "- Total Uploads: %d\n", stats.TotalUploads)
	fmt.Fprintf(&sb, "- Total Data: %s\n", formatFileSize(stats.TotalSize))
	sb.WriteString("\nTop Uploaders:\n")
	if len(stats.TopUploaders) == 0 {
		sb.WriteString("No uploads yet.")
	}
	for _, top := range stats.TopUploaders {
		fmt.Fprintf(&sb, "• User %d: %d uploads\n", top.UserID, top.Uploads)
	}

	b.sendResponse(ctx, chatID, sb.String())
}

// sendBotSettings replies with the current configuration and the chat's
// own settings row (admin panel).
func (b *Bot) sendBotSettings(ctx context.Context, chatID int64) {
	settings, err := b.store.UpsertChatSettings(chatID, "", "")
	if err != nil {
		ErrorLogger.Printf("Error loading settings for chat %d: %v", chatID, err)
		b.sendResponse(ctx, chatID, "Sorry, I couldn't load the settings right now.")
		return
	}

	admins, err := b.store.ListAdmins()
	if err != nil {
		ErrorLogger.Printf("Error listing admins: %v", err)
	}

	chatState := "disabled"
	if settings.IsEnabled {
		chatState = "enabled"
	}

	chatLimit := "global default"
	if settings.MaxFileSize > 0 {
		chatLimit = fmt.Sprintf("%d MB", settings.MaxFileSize)
	}

	caser := cases.Title(language.English)
	chatType := settings.ChatType
	if chatType == "" {
		chatType = "unknown"
	}

	text := fmt.Sprintf(
		"⚙️ Bot Settings\n\n"+
			"- Max File Size: %d MB (this chat: %s)\n"+
			"- Allowed Extensions: %s\n"+
			"- Workers: %d\n"+
			"- Log Level: %s\n"+
			"- Admins: %d configured\n\n"+
			"This chat (%s) is %s.",
		b.config.MaxFileSize,
		chatLimit,
		strings.Join(b.config.AllowedExtensions, ", "),
		b.config.Workers,
		b.config.LogLevel,
		len(admins),
		caser.String(chatType),
		chatState,
	)

	b.sendWithKeyboard(ctx, chatID, text, chatToggleKeyboard(settings.IsEnabled))
}

// formatFileSize renders a byte count in human readable units.
func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	value := float64(size)
	idx := -1
	for value >= unit && idx < len(units)-1 {
		value /= unit
		idx++
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}

// displayName renders a user the way the original bot addressed people.
func displayName(user *models.User) string {
	switch {
	case user.Username != "":
		return "@" + user.Username
	case user.FirstName != "" && user.LastName != "":
		return user.FirstName + " " + user.LastName
	case user.FirstName != "":
		return user.FirstName
	default:
		return fmt.Sprintf("User %d", user.ID)
	}
}
