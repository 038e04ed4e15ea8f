package main

import (
	"time"

	"gorm.io/datatypes"
)

// User is keyed by the Telegram user ID. Users are created on first
// interaction and never hard-deleted; a ban is a soft state on the row.
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"` // Telegram user ID
	Username  string `gorm:"size:255"`
	FirstName string `gorm:"size:255"`
	LastName  string `gorm:"size:255"`
	IsAdmin   bool   `gorm:"default:false"`
	IsBanned  bool   `gorm:"default:false"`
	CreatedAt time.Time
	LastSeen  time.Time
}

func (User) TableName() string {
	return "users"
}

// TorrentUpload is one accepted upload. Rows are append-only and immutable
// after insert; TorrentInfo carries the parsed descriptor fields as JSON.
type TorrentUpload struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      int64  `gorm:"index;not null"`
	User        User   `gorm:"foreignKey:UserID"`
	FileName    string `gorm:"size:500;not null"`
	FileSize    int64  `gorm:"not null"` // bytes
	FileHash    string `gorm:"size:64"`  // SHA-256 of the .torrent file
	ChatID      int64  `gorm:"index;not null"`
	MessageID   int    `gorm:"not null"`
	UploadDate  time.Time
	TorrentInfo datatypes.JSON
}

func (TorrentUpload) TableName() string {
	return "torrent_uploads"
}

// ChatSettings is created lazily the first time the bot sees a chat and
// mutated only by admin actions. MaxFileSize of 0 means "use the global
// default".
type ChatSettings struct {
	ChatID      int64  `gorm:"primaryKey;autoIncrement:false"`
	ChatType    string `gorm:"size:50;not null"` // private, group, supergroup
	ChatTitle   string `gorm:"size:500"`
	IsEnabled   bool   `gorm:"default:true"`
	MaxFileSize int64  // MB, per-chat override
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ChatSettings) TableName() string {
	return "chat_settings"
}
