package repositories

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/InviteTracker/internal/models"
)

type InviteRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewInviteRepository(db *gorm.DB, redisClient *redis.Client) *InviteRepository {
	return &InviteRepository{db: db, redis: redisClient}
}

// UpsertInvite 写入或更新邀请码记录（invite_created 事件）
// 实现逻辑：按 code 冲突时更新使用计数与归属信息
func (r *InviteRepository) UpsertInvite(invite *models.Invite) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"guild_id", "channel_id", "creator_id", "uses"}),
	}).Create(invite).Error
}

// DeleteInviteByCode 删除邀请码记录（invite_deleted 事件，软删除）
func (r *InviteRepository) DeleteInviteByCode(code string) error {
	return r.db.Where("code = ?", code).Delete(&models.Invite{}).Error
}

// GetInviteByCode 根据邀请码获取邀请信息
func (r *InviteRepository) GetInviteByCode(code string) (*models.Invite, error) {
	var invite models.Invite
	err := r.db.Where("code = ?", code).First(&invite).Error
	return &invite, err
}

// RecordAttribution 持久化一次归因结果
// 实现逻辑：开启事务，累加被使用邀请码的计数，插入加入事件记录，
// 并把成员 upsert 进 guild_members（带归因信息）
func (r *InviteRepository) RecordAttribution(event *models.JoinEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if event.InviteCode != "" && !event.IsVanity && event.Error == "" {
			// 邀请码可能尚未入库（启动前创建的），找不到时忽略
			err := tx.Model(&models.Invite{}).
				Where("code = ?", event.InviteCode).
				UpdateColumn("uses", gorm.Expr("uses + ?", 1)).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Create(event).Error; err != nil {
			return err
		}

		member := models.GuildMember{
			GuildID:    event.GuildID,
			UserID:     event.UserID,
			InviteCode: event.InviteCode,
			InviterID:  event.InviterID,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"invite_code", "inviter_id"}),
		}).Create(&member).Error
	})
}

// RecentJoins 获取某 Guild 最近的加入事件，按时间倒序，支持分页
func (r *InviteRepository) RecentJoins(guildID string, limit, offset int) ([]models.JoinEvent, error) {
	var events []models.JoinEvent
	err := r.db.Where("guild_id = ?", guildID).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	return events, err
}

// DropGuild 机器人离开 Guild 时清理其全部数据
func (r *InviteRepository) DropGuild(guildID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guild_id = ?", guildID).Delete(&models.Invite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", guildID).Delete(&models.GuildMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", guildID).Delete(&models.JoinEvent{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", guildID).Delete(&models.Guild{}).Error
	})
}

// ---- Redis 缓存：实时邀请列表 / 排行榜 ----

func liveInvitesKey(guildID string) string {
	return "guild:" + guildID + ":invites:live"
}

func leaderboardKey(guildID string) string {
	return "guild:" + guildID + ":invites:leaderboard"
}

// CacheLiveInvites 缓存平台实时邀请列表的 JSON
func (r *InviteRepository) CacheLiveInvites(ctx context.Context, guildID string, payload []byte, ttl time.Duration) error {
	return r.redis.Set(ctx, liveInvitesKey(guildID), payload, ttl).Err()
}

// GetCachedLiveInvites 读取缓存的实时邀请列表，未命中返回 redis.Nil
func (r *InviteRepository) GetCachedLiveInvites(ctx context.Context, guildID string) ([]byte, error) {
	return r.redis.Get(ctx, liveInvitesKey(guildID)).Bytes()
}

// CacheLeaderboard 缓存邀请排行榜 JSON
func (r *InviteRepository) CacheLeaderboard(ctx context.Context, guildID string, payload []byte, ttl time.Duration) error {
	return r.redis.Set(ctx, leaderboardKey(guildID), payload, ttl).Err()
}

// GetCachedLeaderboard 读取缓存的排行榜，未命中返回 redis.Nil
func (r *InviteRepository) GetCachedLeaderboard(ctx context.Context, guildID string) ([]byte, error) {
	return r.redis.Get(ctx, leaderboardKey(guildID)).Bytes()
}

// InvalidateGuildCaches 失效某 Guild 的全部缓存（归因结果落库后调用）
func (r *InviteRepository) InvalidateGuildCaches(ctx context.Context, guildID string) error {
	return r.redis.Del(ctx, liveInvitesKey(guildID), leaderboardKey(guildID)).Err()
}
