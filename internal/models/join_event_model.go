package models

import "time"

// JoinEvent 每次成员加入的归因记录，ID 为 snowflake
type JoinEvent struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	GuildID    string `gorm:"index;not null;type:varchar(32)" json:"guild_id"`
	UserID     string `gorm:"not null;type:varchar(32)" json:"user_id"`
	InviteCode string `gorm:"type:varchar(32)" json:"invite_code"`
	InviterID  string `gorm:"index;type:varchar(32)" json:"inviter_id"`
	IsVanity   bool   `gorm:"not null;default:false" json:"is_vanity"`
	Error      string `gorm:"type:varchar(255)" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JoinEvent) TableName() string {
	return "join_events"
}
