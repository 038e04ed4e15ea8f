package main

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrUserNotFound is returned for lookups and mutations that name a user
// the bot has never seen.
var ErrUserNotFound = errors.New("user not found")

// Store is the persistence layer over the three tables. It carries no
// business logic; role policy lives in AuthManager and validation in
// TorrentValidator. All operations are single short transactions, so
// concurrent handlers need no locking beyond what the database provides.
type Store struct {
	db    *gorm.DB
	clock Clock
}

func NewStore(db *gorm.DB, clock Clock) *Store {
	return &Store{db: db, clock: clock}
}

// UpsertUser creates the user on first sight and refreshes profile fields
// and last_seen on every later interaction. seedAdmin only applies to the
// initial insert; it never promotes or demotes an existing row.
func (s *Store) UpsertUser(id int64, username, firstName, lastName string, seedAdmin bool) (*User, error) {
	now := s.clock.Now()

	var user User
	err := s.db.Where("id = ?", id).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = User{
			ID:        id,
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
			IsAdmin:   seedAdmin,
			CreatedAt: now,
			LastSeen:  now,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %d: %w", id, err)
		}
		return &user, nil
	case err != nil:
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}

	updates := map[string]interface{}{
		"username":   username,
		"first_name": firstName,
		"last_name":  lastName,
		"last_seen":  now,
	}
	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Store) GetUser(id int64) (*User, error) {
	var user User
	err := s.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// SetUserBanned flips the soft-ban flag. Last write wins when two admins
// race on the same target.
func (s *Store) SetUserBanned(id int64, banned bool) error {
	res := s.db.Model(&User{}).Where("id = ?", id).Update("is_banned", banned)
	if res.Error != nil {
		return fmt.Errorf("set banned for user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) SetUserAdmin(id int64, admin bool) error {
	res := s.db.Model(&User{}).Where("id = ?", id).Update("is_admin", admin)
	if res.Error != nil {
		return fmt.Errorf("set admin for user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) ListAdmins() ([]User, error) {
	var users []User
	if err := s.db.Where("is_admin = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return users, nil
}

func (s *Store) ListBanned() ([]User, error) {
	var users []User
	if err := s.db.Where("is_banned = ?", true).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list banned users: %w", err)
	}
	return users, nil
}

// CreateUpload appends one accepted upload. Rows are never updated after
// this insert.
func (s *Store) CreateUpload(upload *TorrentUpload) error {
	if upload.UploadDate.IsZero() {
		upload.UploadDate = s.clock.Now()
	}
	if err := s.db.Create(upload).Error; err != nil {
		return fmt.Errorf("create upload %q for user %d: %w", upload.FileName, upload.UserID, err)
	}
	return nil
}

func (s *Store) UserUploads(userID int64, limit int) ([]TorrentUpload, error) {
	var uploads []TorrentUpload
	q := s.db.Where("user_id = ?", userID).Order("upload_date desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("list uploads for user %d: %w", userID, err)
	}
	return uploads, nil
}

func (s *Store) UploadByMessage(chatID int64, messageID int) (*TorrentUpload, error) {
	var upload TorrentUpload
	err := s.db.Where("chat_id = ? AND message_id = ?", chatID, messageID).First(&upload).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("upload for message %d in chat %d: %w", messageID, chatID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("find upload for message %d: %w", messageID, err)
	}
	return &upload, nil
}

// UserStats summarizes one uploader.
type UserStats struct {
	Uploads   int64
	TotalSize int64
}

func (s *Store) UserStats(userID int64) (UserStats, error) {
	var stats UserStats
	err := s.db.Model(&TorrentUpload{}).Where("user_id = ?", userID).Count(&stats.Uploads).Error
	if err != nil {
		return stats, fmt.Errorf("count uploads for user %d: %w", userID, err)
	}
	var total struct{ Total int64 }
	err = s.db.Model(&TorrentUpload{}).
		Select("COALESCE(SUM(file_size), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return stats, fmt.Errorf("sum upload size for user %d: %w", userID, err)
	}
	stats.TotalSize = total.Total
	return stats, nil
}

// GlobalStats summarizes the whole deployment for the admin panel.
type GlobalStats struct {
	TotalUsers   int64
	ActiveUsers  int64 // seen within the last seven days
	TotalUploads int64
	TotalSize    int64
	TopUploaders []UploaderCount
}

// UploaderCount is one row of the top-uploaders board.
type UploaderCount struct {
	UserID  int64
	Uploads int64
}

func (s *Store) GlobalStats() (GlobalStats, error) {
	var stats GlobalStats

	if err := s.db.Model(&User{}).Count(&stats.TotalUsers).Error; err != nil {
		return stats, fmt.Errorf("count users: %w", err)
	}

	weekAgo := s.clock.Now().AddDate(0, 0, -7)
	err := s.db.Model(&User{}).Where("last_seen >= ?", weekAgo).Count(&stats.ActiveUsers).Error
	if err != nil {
		return stats, fmt.Errorf("count active users: %w", err)
	}

	if err := s.db.Model(&TorrentUpload{}).Count(&stats.TotalUploads).Error; err != nil {
		return stats, fmt.Errorf("count uploads: %w", err)
	}

	var total struct{ Total int64 }
	err = s.db.Model(&TorrentUpload{}).
		Select("COALESCE(SUM(file_size), 0) AS total").
		Scan(&total).Error
	if err != nil {
		return stats, fmt.Errorf("sum upload size: %w", err)
	}
	stats.TotalSize = total.Total

	err = s.db.Model(&TorrentUpload{}).
		Select("user_id, COUNT(*) AS uploads").
		Group("user_id").
		Order("uploads DESC").
		Limit(5).
		Scan(&stats.TopUploaders).Error
	if err != nil {
		return stats, fmt.Errorf("top uploaders: %w", err)
	}

	return stats, nil
}

// UpsertChatSettings creates the settings row the first time the bot sees a
// chat and refreshes type/title afterwards. Enabled state and the size
// override are only touched by admin actions.
func (s *Store) UpsertChatSettings(chatID int64, chatType, title string) (*ChatSettings, error) {
	now := s.clock.Now()

	var settings ChatSettings
	err := s.db.Where("chat_id = ?", chatID).First(&settings).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		settings = ChatSettings{
			ChatID:    chatID,
			ChatType:  chatType,
			ChatTitle: title,
			IsEnabled: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("create chat settings %d: %w", chatID, err)
		}
		return &settings, nil
	case err != nil:
		return nil, fmt.Errorf("find chat settings %d: %w", chatID, err)
	}

	// An empty chat type means the caller only wants the row, not a refresh.
	if chatType != "" && (settings.ChatType != chatType || settings.ChatTitle != title) {
		updates := map[string]interface{}{
			"chat_type":  chatType,
			"chat_title": title,
			"updated_at": now,
		}
		if err := s.db.Model(&settings).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update chat settings %d: %w", chatID, err)
		}
	}
	return &settings, nil
}

func (s *Store) SetChatEnabled(chatID int64, enabled bool) error {
	updates := map[string]interface{}{
		"is_enabled": enabled,
		"updated_at": s.clock.Now(),
	}
	err := s.db.Model(&ChatSettings{}).Where("chat_id = ?", chatID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("set enabled for chat %d: %w", chatID, err)
	}
	return nil
}

func (s *Store) SetChatMaxFileSize(chatID int64, maxMB int64) error {
	updates := map[string]interface{}{
		"max_file_size": maxMB,
		"updated_at":    s.clock.Now(),
	}
	err := s.db.Model(&ChatSettings{}).Where("chat_id = ?", chatID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("set max file size for chat %d: %w", chatID, err)
	}
	return nil
}
