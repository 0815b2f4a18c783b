package models

import (
	"time"
)

// Guild 机器人所在的服务器
type Guild struct {
	ID         string `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Name       string `gorm:"not null;type:varchar(255)" json:"name"`
	OwnerID    string `gorm:"not null;type:varchar(32)" json:"owner_id"`
	VanityCode string `gorm:"type:varchar(32)" json:"vanity_code"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Guild) TableName() string {
	return "guilds"
}
