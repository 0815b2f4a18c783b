package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gopher0727/InviteTracker/internal/models"
	"github.com/Gopher0727/InviteTracker/internal/repositories"
)

var (
	ErrTooManyKeys   = errors.New("已达到 API Key 数量上限")
	ErrInvalidKey    = errors.New("无效的 API Key")
	ErrExpiredKey    = errors.New("API Key 已过期")
	ErrInvalidPrefix = errors.New("无效的 Key 前缀")
)

const (
	// 每个用户最多持有的 Key 数量
	maxKeysPerUser = 5
	// Key 的有效期
	keyLifetime = 30 * 24 * time.Hour
)

type KeyService struct {
	repo *repositories.ApiKeyRepository
}

func NewKeyService(repo *repositories.ApiKeyRepository) *KeyService {
	return &KeyService{repo: repo}
}

// Create 为用户签发一个新的 API Key
// 返回的明文格式为 prefix:id:secret，只在创建时出现一次，库中仅存 bcrypt 哈希
func (s *KeyService) Create(userID, name, prefix string) (string, *models.ApiKey, error) {
	if prefix != "prod" && prefix != "test" {
		return "", nil, ErrInvalidPrefix
	}

	count, err := s.repo.CountByUser(userID)
	if err != nil {
		return "", nil, err
	}
	if count >= maxKeysPerUser {
		return "", nil, ErrTooManyKeys
	}

	secretBytes := make([]byte, 16)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate key secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash key secret: %w", err)
	}

	key := &models.ApiKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Prefix:    prefix,
		Hash:      string(hash),
		ExpiresAt: time.Now().Add(keyLifetime),
	}
	if err := s.repo.Create(key); err != nil {
		return "", nil, err
	}

	plain := fmt.Sprintf("%s:%s:%s", prefix, key.ID, secret)
	return plain, key, nil
}

// Verify 校验明文 Key，返回对应记录
// 实现逻辑：拆出 id 定位记录，检查过期时间，再做 bcrypt 比对
func (s *KeyService) Verify(plain string) (*models.ApiKey, error) {
	parts := strings.SplitN(plain, ":", 3)
	if len(parts) != 3 {
		return nil, ErrInvalidKey
	}
	prefix, id, secret := parts[0], parts[1], parts[2]

	key, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if key.Prefix != prefix {
		return nil, ErrInvalidKey
	}
	if !key.ExpiresAt.IsZero() && time.Now().After(key.ExpiresAt) {
		return nil, ErrExpiredKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(secret)); err != nil {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// List 列出用户持有的全部 Key（不含哈希之外的敏感信息）
func (s *KeyService) List(userID string) ([]models.ApiKey, error) {
	return s.repo.ListByUser(userID)
}

// Revoke 吊销用户的一条 Key
func (s *KeyService) Revoke(userID, id string) error {
	return s.repo.Delete(userID, id)
}

// RevokeAll 吊销用户的全部 Key
func (s *KeyService) RevokeAll(userID string) error {
	return s.repo.DeleteAllByUser(userID)
}
