package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const genericErrorReply = "❌ An error occurred. Please try again later."

// handleUpdate is the dispatch boundary. Every inbound event is handled
// independently; a panic or error in one handler is logged and answered
// with a generic reply, never allowed to take the process down.
func (b *Bot) handleUpdate(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	defer func() {
		if r := recover(); r != nil {
			ErrorLogger.Printf("Recovered from panic in update handler: %v", r)
			if chatID := updateChatID(update); chatID != 0 {
				b.sendResponse(ctx, chatID, genericErrorReply)
			}
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func updateChatID(update *models.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil {
		return update.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) {
	if message.From == nil {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	settings, err := b.store.UpsertChatSettings(chatID, string(message.Chat.Type), message.Chat.Title)
	if err != nil {
		// Storage trouble on one interaction must not stop the bot.
		ErrorLogger.Printf("Error upserting settings for chat %d: %v", chatID, err)
	}

	if _, err := b.registerUser(message.From); err != nil {
		ErrorLogger.Printf("Error registering user %d: %v", userID, err)
	}

	// Ban gate comes before any routing: banned users get a notice and
	// nothing else runs, uploads included.
	if b.auth.IsBanned(userID) {
		b.sendResponse(ctx, chatID, "❌ You are banned from using this bot.")
		return
	}

	// In a disabled chat only admins get through, so one of them can
	// reach the panel and re-enable it.
	if settings != nil && !settings.IsEnabled && !b.auth.IsAdmin(userID) {
		DebugLogger.Printf("Ignoring message from user %d in disabled chat %d", userID, chatID)
		return
	}

	if message.Document != nil {
		b.handleDocument(ctx, message, settings)
		return
	}

	command, args := parseCommand(message)
	if command == "" {
		return
	}

	switch command {
	case "/start":
		b.handleStart(ctx, message)
	case "/help":
		b.sendResponse(ctx, chatID, b.helpText())
	case "/stats":
		b.sendUserStats(ctx, chatID, userID)
	case "/admin":
		b.handleAdmin(ctx, chatID, userID)
	case "/ban", "/unban", "/promote", "/demote":
		b.handleRoleCommand(ctx, chatID, userID, command, args)
	default:
		DebugLogger.Printf("Unknown command %q from user %d", command, userID)
	}
}

// registerUser upserts the sender, seeding the admin flag for identities
// named in ADMIN_USER_IDS.
func (b *Bot) registerUser(from *models.User) (*User, error) {
	seedAdmin := containsID(b.config.AdminUserIDs, from.ID)
	return b.store.UpsertUser(from.ID, from.Username, from.FirstName, from.LastName, seedAdmin)
}

// parseCommand extracts the leading bot command and its arguments, if any.
func parseCommand(message *models.Message) (string, []string) {
	for _, entity := range message.Entities {
		if entity.Type != models.MessageEntityTypeBotCommand {
			continue
		}
		command := strings.TrimSpace(message.Text[entity.Offset : entity.Offset+entity.Length])
		// Commands in groups arrive as /cmd@botname.
		if at := strings.Index(command, "@"); at > 0 {
			command = command[:at]
		}
		args := strings.Fields(message.Text[entity.Offset+entity.Length:])
		return strings.ToLower(command), args
	}
	return "", nil
}

func (b *Bot) handleStart(ctx context.Context, message *models.Message) {
	welcome := fmt.Sprintf(
		"🐍 Welcome to %s, %s!\n\n"+
			"Send me a .torrent file and I'll validate it, extract its metadata and keep it on record.\n\n"+
			"Commands:\n"+
			"/help - Show detailed help\n"+
			"/stats - View your upload statistics\n"+
			"/admin - Admin panel (admins only)",
		b.config.BotName,
		displayName(message.From),
	)

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📚 Help", CallbackData: "help"}},
			{{Text: "📊 Stats", CallbackData: "stats"}},
		},
	}

	b.sendWithKeyboard(ctx, message.Chat.ID, welcome, keyboard)
}

func (b *Bot) helpText() string {
	return fmt.Sprintf(
		"📚 %s Help\n\n"+
			"Basic usage:\n"+
			"1. Send me a .torrent file\n"+
			"2. I'll validate and process it\n"+
			"3. Get detailed torrent information\n\n"+
			"Commands:\n"+
			"/start - Start the bot\n"+
			"/help - Show this help message\n"+
			"/stats - View your upload statistics\n"+
			"/admin - Admin panel (admins only)\n\n"+
			"File requirements:\n"+
			"• File type: %s only\n"+
			"• Max size: %d MB\n"+
			"• Must be a valid torrent file",
		b.config.BotName,
		strings.Join(b.config.AllowedExtensions, ", "),
		b.config.MaxFileSize,
	)
}

func (b *Bot) handleAdmin(ctx context.Context, chatID, userID int64) {
	if !b.auth.IsAdmin(userID) {
		InfoLogger.Printf("audit: actor=%d action=admin-panel outcome=refused", userID)
		b.sendResponse(ctx, chatID, "❌ You don't have admin permissions.")
		return
	}

	b.sendWithKeyboard(ctx, chatID, "🔧 Admin Panel\n\nUse the buttons below to manage the bot:", adminPanelKeyboard())
}

// handleRoleCommand covers /ban, /unban, /promote and /demote, each taking
// a numeric target user ID.
func (b *Bot) handleRoleCommand(ctx context.Context, chatID, actorID int64, command string, args []string) {
	if !b.auth.IsAdmin(actorID) {
		InfoLogger.Printf("audit: actor=%d action=%s outcome=refused", actorID, command)
		b.sendResponse(ctx, chatID, "❌ You don't have admin permissions.")
		return
	}

	if len(args) != 1 {
		b.sendResponse(ctx, chatID, fmt.Sprintf("Usage: %s <user_id>", command))
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.sendResponse(ctx, chatID, fmt.Sprintf("Invalid user ID %q.", args[0]))
		return
	}

	switch command {
	case "/ban":
		err = b.auth.BanUser(actorID, targetID)
	case "/unban":
		err = b.auth.UnbanUser(actorID, targetID)
	case "/promote":
		err = b.auth.PromoteUser(actorID, targetID)
	case "/demote":
		err = b.auth.DemoteUser(actorID, targetID)
	}

	switch {
	case err == nil:
		b.sendResponse(ctx, chatID, fmt.Sprintf("✅ Done: %s user %d.", strings.TrimPrefix(command, "/"), targetID))
	case errors.Is(err, ErrProtectedUser):
		b.sendResponse(ctx, chatID, "❌ The super admin cannot be banned or demoted.")
	case errors.Is(err, ErrNotAuthorized):
		b.sendResponse(ctx, chatID, "❌ You are not allowed to do that.")
	case errors.Is(err, ErrUserNotFound):
		b.sendResponse(ctx, chatID, fmt.Sprintf("❌ User %d not found.", targetID))
	default:
		ErrorLogger.Printf("Error handling %s for user %d: %v", command, targetID, err)
		b.sendResponse(ctx, chatID, genericErrorReply)
	}
}

// handleDocument runs the upload pipeline: cheap prechecks before the
// download, flood limit, download, full validation, then the append-only
// insert and a summary reply.
func (b *Bot) handleDocument(ctx context.Context, message *models.Message, settings *ChatSettings) {
	chatID := message.Chat.ID
	userID := message.From.ID
	document := message.Document

	limitBytes := b.effectiveMaxBytes(settings)

	if err := b.validator.Precheck(document.FileName, document.FileSize, limitBytes); err != nil {
		b.sendResponse(ctx, chatID, "❌ "+err.Error())
		return
	}

	if !b.checkUploadLimits(userID) {
		b.sendResponse(ctx, chatID, "❌ Upload limit reached. Please try again later.")
		return
	}

	processingID := 0
	if msg, err := b.tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🔄 Processing torrent file...",
	}); err == nil && msg != nil {
		processingID = msg.ID
	}

	data, err := b.downloadFile(ctx, document.FileID)
	if err != nil {
		ErrorLogger.Printf("Error downloading document %s: %v", document.FileID, err)
		b.respond(ctx, chatID, processingID, "❌ An error occurred while processing your file.", nil)
		return
	}

	meta, err := b.validator.Validate(document.FileName, document.FileSize, limitBytes, data)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			b.respond(ctx, chatID, processingID, "❌ Invalid torrent file: "+vErr.Reason, nil)
		} else {
			ErrorLogger.Printf("Error validating document %s: %v", document.FileName, err)
			b.respond(ctx, chatID, processingID, "❌ An error occurred while processing your file.", nil)
		}
		return
	}

	infoJSON, err := json.Marshal(meta)
	if err != nil {
		ErrorLogger.Printf("Error encoding metadata for %s: %v", document.FileName, err)
		b.respond(ctx, chatID, processingID, genericErrorReply, nil)
		return
	}

	upload := &TorrentUpload{
		UserID:      userID,
		FileName:    document.FileName,
		FileSize:    document.FileSize,
		FileHash:    meta.FileHash,
		ChatID:      chatID,
		MessageID:   message.ID,
		UploadDate:  b.clock.Now(),
		TorrentInfo: infoJSON,
	}
	if err := b.store.CreateUpload(upload); err != nil {
		ErrorLogger.Printf("Error saving upload %q: %v", document.FileName, err)
		b.respond(ctx, chatID, processingID, genericErrorReply, nil)
		return
	}

	InfoLogger.Printf("Accepted upload %q (%s) from user %d in chat %d",
		document.FileName, formatFileSize(document.FileSize), userID, chatID)

	response := fmt.Sprintf(
		"✅ Torrent Uploaded Successfully!\n\n"+
			"📁 File: %s\n"+
			"📏 Size: %s\n"+
			"🔗 Info Hash: %s\n"+
			"📊 Files: %d\n"+
			"💾 Total Size: %s\n\n"+
			"Torrent: %s",
		document.FileName,
		formatFileSize(document.FileSize),
		meta.InfoHash,
		meta.FileCount,
		formatFileSize(meta.TotalSize),
		meta.Name,
	)

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📊 My Stats", CallbackData: "stats"}},
			{{Text: "ℹ️ Torrent Info", CallbackData: fmt.Sprintf("torrent:%d", message.ID)}},
		},
	}

	b.respond(ctx, chatID, processingID, response, keyboard)
}

// respond edits the processing message when one was sent, otherwise sends
// a fresh reply.
func (b *Bot) respond(ctx context.Context, chatID int64, messageID int, text string, keyboard *models.InlineKeyboardMarkup) {
	if messageID == 0 {
		b.sendWithKeyboard(ctx, chatID, text, keyboard)
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.tgBot.EditMessageText(ctx, params); err != nil {
		ErrorLogger.Printf("Error editing message %d in chat %d: %v", messageID, chatID, err)
	}
}

// handleCallback routes inline keyboard presses.
func (b *Bot) handleCallback(ctx context.Context, cq *models.CallbackQuery) {
	answer := func(text string) {
		_, err := b.tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cq.ID,
			Text:            text,
		})
		if err != nil {
			ErrorLogger.Printf("Error answering callback %s: %v", cq.ID, err)
		}
	}

	if cq.Message.Message == nil {
		answer("")
		return
	}

	chatID := cq.Message.Message.Chat.ID
	userID := cq.From.ID

	if _, err := b.registerUser(&cq.From); err != nil {
		ErrorLogger.Printf("Error registering user %d: %v", userID, err)
	}

	if b.auth.IsBanned(userID) {
		answer("❌ You are banned from using this bot.")
		return
	}

	// Same gate as the message path: in a disabled chat only admins may
	// press buttons, so one of them can re-enable it.
	chat := cq.Message.Message.Chat
	settings, err := b.store.UpsertChatSettings(chatID, string(chat.Type), chat.Title)
	if err != nil {
		ErrorLogger.Printf("Error upserting settings for chat %d: %v", chatID, err)
	}
	if settings != nil && !settings.IsEnabled && !b.auth.IsAdmin(userID) {
		DebugLogger.Printf("Ignoring callback from user %d in disabled chat %d", userID, chatID)
		answer("")
		return
	}

	data := cq.Data
	switch {
	case data == "help":
		answer("")
		b.sendResponse(ctx, chatID, b.helpText())
	case data == "stats":
		answer("")
		b.sendUserStats(ctx, chatID, userID)
	case strings.HasPrefix(data, "torrent:"):
		answer("")
		b.sendTorrentInfo(ctx, chatID, strings.TrimPrefix(data, "torrent:"))
	case strings.HasPrefix(data, "admin:") || strings.HasPrefix(data, "chat:"):
		if !b.auth.IsAdmin(userID) {
			InfoLogger.Printf("audit: actor=%d action=%s outcome=refused", userID, data)
			answer("❌ Access denied.")
			return
		}
		answer("")
		b.handleAdminCallback(ctx, chatID, userID, data)
	default:
		answer("")
		DebugLogger.Printf("Unknown callback data %q from user %d", data, userID)
	}
}

func (b *Bot) handleAdminCallback(ctx context.Context, chatID, userID int64, data string) {
	switch data {
	case "admin:refresh":
		b.handleAdmin(ctx, chatID, userID)
	case "admin:stats":
		b.sendGlobalStats(ctx, chatID)
	case "admin:settings":
		b.sendBotSettings(ctx, chatID)
	case "admin:users":
		b.sendWithKeyboard(ctx, chatID,
			"👥 User Management\n\n"+
				"Select an action, then send the matching command with the target's user ID.",
			userManagementKeyboard())
	case "admin:ban":
		b.sendResponse(ctx, chatID, "Send /ban <user_id> to ban a user.")
	case "admin:unban":
		b.sendResponse(ctx, chatID, "Send /unban <user_id> to unban a user.")
	case "admin:promote":
		b.sendResponse(ctx, chatID, "Send /promote <user_id> to promote a user to admin.")
	case "admin:demote":
		b.sendResponse(ctx, chatID, "Send /demote <user_id> to demote an admin (super admin only).")
	case "chat:enable", "chat:disable":
		enable := data == "chat:enable"
		if err := b.store.SetChatEnabled(chatID, enable); err != nil {
			ErrorLogger.Printf("Error toggling chat %d: %v", chatID, err)
			b.sendResponse(ctx, chatID, genericErrorReply)
			return
		}
		state := "disabled"
		if enable {
			state = "enabled"
		}
		InfoLogger.Printf("audit: actor=%d action=%s chat=%d outcome=ok", userID, data, chatID)
		b.sendResponse(ctx, chatID, fmt.Sprintf("✅ Bot %s in this chat.", state))
	default:
		DebugLogger.Printf("Unknown admin callback %q from user %d", data, userID)
	}
}

// sendTorrentInfo shows the stored metadata for an earlier upload in this
// chat, looked up by the source message ID carried in the callback data.
func (b *Bot) sendTorrentInfo(ctx context.Context, chatID int64, rawMessageID string) {
	messageID, err := strconv.Atoi(rawMessageID)
	if err != nil {
		b.sendResponse(ctx, chatID, "❌ Torrent information not found.")
		return
	}

	upload, err := b.store.UploadByMessage(chatID, messageID)
	if err != nil {
		DebugLogger.Printf("Torrent info lookup failed for message %d in chat %d: %v", messageID, chatID, err)
		b.sendResponse(ctx, chatID, "❌ Torrent information not found.")
		return
	}

	var meta TorrentMeta
	if err := json.Unmarshal(upload.TorrentInfo, &meta); err != nil {
		ErrorLogger.Printf("Error decoding metadata for upload %d: %v", upload.ID, err)
		b.sendResponse(ctx, chatID, genericErrorReply)
		return
	}

	text := fmt.Sprintf(
		"📋 Detailed Torrent Information\n\n"+
			"📁 File: %s\n"+
			"👤 Uploaded by: User %d\n"+
			"📅 Date: %s\n"+
			"💾 Size: %s\n\n"+
			"Name: %s\n"+
			"Info Hash: %s\n"+
			"Pieces: %d × %s\n"+
			"Files: %d\n"+
			"Trackers: %s",
		upload.FileName,
		upload.UserID,
		upload.UploadDate.Format("2006-01-02 15:04:05"),
		formatFileSize(upload.FileSize),
		meta.Name,
		meta.InfoHash,
		meta.PieceCount,
		formatFileSize(meta.PieceLength),
		meta.FileCount,
		strings.Join(meta.AnnounceURLs, ", "),
	)

	b.sendResponse(ctx, chatID, text)
}

func adminPanelKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "👥 User Management", CallbackData: "admin:users"}},
			{{Text: "📊 Global Stats", CallbackData: "admin:stats"}},
			{{Text: "⚙️ Settings", CallbackData: "admin:settings"}},
			{{Text: "🔄 Refresh", CallbackData: "admin:refresh"}},
		},
	}
}

func userManagementKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🚫 Ban User", CallbackData: "admin:ban"}},
			{{Text: "✅ Unban User", CallbackData: "admin:unban"}},
			{{Text: "👑 Promote Admin", CallbackData: "admin:promote"}},
			{{Text: "⬇️ Demote Admin", CallbackData: "admin:demote"}},
			{{Text: "🔙 Back", CallbackData: "admin:refresh"}},
		},
	}
}

func chatToggleKeyboard(enabled bool) *models.InlineKeyboardMarkup {
	toggle := models.InlineKeyboardButton{Text: "🔇 Disable in this chat", CallbackData: "chat:disable"}
	if !enabled {
		toggle = models.InlineKeyboardButton{Text: "🔊 Enable in this chat", CallbackData: "chat:enable"}
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{toggle},
			{{Text: "🔙 Back", CallbackData: "admin:refresh"}},
		},
	}
}
