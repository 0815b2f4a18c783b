package models

import (
	"time"

	"gorm.io/gorm"
)

// Invite 邀请码模型，use 计数由归因结果回写
type Invite struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	GuildID   string         `gorm:"not null;index;type:varchar(32)" json:"guild_id"`
	Code      string         `gorm:"uniqueIndex;size:32" json:"code"`
	ChannelID string         `gorm:"type:varchar(32)" json:"channel_id"`
	CreatorID string         `gorm:"index;type:varchar(32)" json:"creator_id"`
	Uses      int            `gorm:"not null;default:0" json:"uses"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invite) TableName() string {
	return "invites"
}
