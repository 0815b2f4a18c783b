package repositories

import (
	"gorm.io/gorm"

	"github.com/Gopher0727/InviteTracker/internal/models"
)

type ApiKeyRepository struct {
	db *gorm.DB
}

func NewApiKeyRepository(db *gorm.DB) *ApiKeyRepository {
	return &ApiKeyRepository{db: db}
}

// Create 保存一条新的 API Key 记录（仅哈希）
func (r *ApiKeyRepository) Create(key *models.ApiKey) error {
	return r.db.Create(key).Error
}

// CountByUser 统计某用户持有的有效 Key 数量
func (r *ApiKeyRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ApiKey{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// GetByID 根据 Key ID 获取记录
func (r *ApiKeyRepository) GetByID(id string) (*models.ApiKey, error) {
	var key models.ApiKey
	err := r.db.Where("id = ?", id).First(&key).Error
	return &key, err
}

// ListByUser 列出某用户的全部 Key
func (r *ApiKeyRepository) ListByUser(userID string) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := r.db.Where("user_id = ?", userID).Find(&keys).Error
	return keys, err
}

// Delete 删除某用户的一条 Key（软删除）
func (r *ApiKeyRepository) Delete(userID, id string) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.ApiKey{}).Error
}

// DeleteAllByUser 删除某用户的全部 Key
func (r *ApiKeyRepository) DeleteAllByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.ApiKey{}).Error
}
