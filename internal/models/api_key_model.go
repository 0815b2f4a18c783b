package models

import (
	"time"

	"gorm.io/gorm"
)

// ApiKey API 密钥，只保存 bcrypt 哈希，明文仅在创建时返回一次
type ApiKey struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string         `gorm:"index;not null;type:varchar(32)" json:"user_id"`
	Name      string         `gorm:"type:varchar(64)" json:"name"`
	Prefix    string         `gorm:"type:varchar(8)" json:"prefix"`
	Hash      string         `gorm:"not null;type:varchar(72)" json:"-"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ApiKey) TableName() string {
	return "api_keys"
}
