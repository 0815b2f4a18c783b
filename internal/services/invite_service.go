package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gopher0727/InviteTracker/internal/models"
	"github.com/Gopher0727/InviteTracker/internal/platform"
	"github.com/Gopher0727/InviteTracker/internal/repositories"
	logger "github.com/Gopher0727/InviteTracker/middleware/log"
)

var (
	ErrInviteNotFound = errors.New("邀请码不存在")
)

// 实时邀请数据的缓存时长，平台计数本身是最终一致的，缓存略短
const liveCacheTTL = 30 * time.Second

type InviteService struct {
	platform   platform.Client
	repo       *repositories.InviteRepository
	log        *logger.Logger
	inviteBase string
}

func NewInviteService(platformClient platform.Client, repo *repositories.InviteRepository, log *logger.Logger, inviteBase string) *InviteService {
	return &InviteService{
		platform:   platformClient,
		repo:       repo,
		log:        log,
		inviteBase: inviteBase,
	}
}

type InviteInfo struct {
	Code      string `json:"code"`
	URL       string `json:"url"`
	Uses      int    `json:"uses"`
	CreatorID string `json:"creator_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}

// ListInvites 获取某 Guild 的实时邀请列表（带 Redis 缓存）
// 实现逻辑：优先读缓存，未命中则调用平台 API 并回填缓存
func (s *InviteService) ListInvites(ctx context.Context, guildID string) ([]InviteInfo, error) {
	if cached, err := s.repo.GetCachedLiveInvites(ctx, guildID); err == nil {
		var infos []InviteInfo
		if err := json.Unmarshal(cached, &infos); err == nil {
			return infos, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// 缓存故障降级为直接回源
		s.log.Warn("invite cache read failed", zap.String("guild_id", guildID), zap.Error(err))
	}

	invites, err := s.platform.FetchInvites(ctx, guildID)
	if err != nil {
		return nil, err
	}

	infos := make([]InviteInfo, 0, len(invites))
	for _, inv := range invites {
		infos = append(infos, InviteInfo{
			Code:      inv.Code,
			URL:       s.inviteBase + "/" + inv.Code,
			Uses:      inv.Uses,
			CreatorID: inv.CreatorID,
			ChannelID: inv.ChannelID,
		})
	}

	if payload, err := json.Marshal(infos); err == nil {
		if err := s.repo.CacheLiveInvites(ctx, guildID, payload, liveCacheTTL); err != nil {
			s.log.Warn("invite cache write failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return infos, nil
}

// GetInvite 按邀请码获取单条实时邀请信息
func (s *InviteService) GetInvite(ctx context.Context, guildID, code string) (*InviteInfo, error) {
	infos, err := s.ListInvites(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Code == code {
			return &infos[i], nil
		}
	}
	return nil, ErrInviteNotFound
}

type MemberInvitesResponse struct {
	UserID string   `json:"user_id"`
	Count  int      `json:"count"`
	Codes  []string `json:"codes"`
}

// MemberInvites 统计某成员创建的所有邀请码及总使用次数
func (s *InviteService) MemberInvites(ctx context.Context, guildID, userID string) (*MemberInvitesResponse, error) {
	infos, err := s.ListInvites(ctx, guildID)
	if err != nil {
		return nil, err
	}

	resp := &MemberInvitesResponse{UserID: userID, Codes: []string{}}
	for _, info := range infos {
		if info.CreatorID == userID {
			resp.Count += info.Uses
			resp.Codes = append(resp.Codes, info.Code)
		}
	}
	return resp, nil
}

type LeaderboardEntry struct {
	UserID string   `json:"user_id"`
	Count  int      `json:"count"`
	Codes  []string `json:"codes"`
}

// TopInviters 按邀请总使用数聚合出排行榜（带 Redis 缓存）
// 实现逻辑：按创建者聚合实时邀请列表，按使用数倒序；
// 并列时按 user_id 升序，保证输出稳定
func (s *InviteService) TopInviters(ctx context.Context, guildID string) ([]LeaderboardEntry, error) {
	if cached, err := s.repo.GetCachedLeaderboard(ctx, guildID); err == nil {
		var entries []LeaderboardEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
	}

	infos, err := s.ListInvites(ctx, guildID)
	if err != nil {
		return nil, err
	}

	byCreator := make(map[string]*LeaderboardEntry)
	order := make([]string, 0)
	for _, info := range infos {
		if info.CreatorID == "" {
			continue
		}
		entry, ok := byCreator[info.CreatorID]
		if !ok {
			entry = &LeaderboardEntry{UserID: info.CreatorID, Codes: []string{}}
			byCreator[info.CreatorID] = entry
			order = append(order, info.CreatorID)
		}
		entry.Count += info.Uses
		entry.Codes = append(entry.Codes, info.Code)
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byCreator[id])
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].UserID < entries[j].UserID
	})

	if payload, err := json.Marshal(entries); err == nil {
		if err := s.repo.CacheLeaderboard(ctx, guildID, payload, liveCacheTTL); err != nil {
			s.log.Warn("leaderboard cache write failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return entries, nil
}

// RecentJoins 获取某 Guild 最近的加入归因记录
func (s *InviteService) RecentJoins(guildID string, limit, offset int) ([]models.JoinEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.RecentJoins(guildID, limit, offset)
}
