package models

import "time"

// GuildMember 服务器成员，记录该成员由哪个邀请码引入
type GuildMember struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	GuildID    string `gorm:"uniqueIndex:idx_guild_user;not null;type:varchar(32)" json:"guild_id"`
	UserID     string `gorm:"uniqueIndex:idx_guild_user;not null;type:varchar(32)" json:"user_id"`
	InviteCode string `gorm:"type:varchar(32)" json:"invite_code"`
	InviterID  string `gorm:"index;type:varchar(32)" json:"inviter_id"`

	JoinedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
}

func (GuildMember) TableName() string {
	return "guild_members"
}
