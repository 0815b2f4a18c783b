package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/InviteTracker/config"
	"github.com/Gopher0727/InviteTracker/internal/consumer"
	"github.com/Gopher0727/InviteTracker/internal/handlers"
	"github.com/Gopher0727/InviteTracker/internal/models"
	"github.com/Gopher0727/InviteTracker/internal/platform"
	"github.com/Gopher0727/InviteTracker/internal/repositories"
	"github.com/Gopher0727/InviteTracker/internal/routers"
	"github.com/Gopher0727/InviteTracker/internal/services"
	"github.com/Gopher0727/InviteTracker/internal/snapshot"
	"github.com/Gopher0727/InviteTracker/internal/storage"
	"github.com/Gopher0727/InviteTracker/internal/tracker"
	"github.com/Gopher0727/InviteTracker/middleware/jwt"
	logger "github.com/Gopher0727/InviteTracker/middleware/log"
	"github.com/Gopher0727/InviteTracker/pkg/mq"
	"github.com/Gopher0727/InviteTracker/pkg/ws"
	"github.com/Gopher0727/InviteTracker/utils/ratelimit"
	"github.com/Gopher0727/InviteTracker/utils/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("配置初始化失败: %v", err)
	}

	// 初始化日志
	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}
	defer appLogger.Close()

	// 初始化 PostgreSQL
	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	postgres, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		appLogger.Fatal("postgres 初始化失败", zap.Error(err))
	}

	// 初始化 Redis
	redisClient, err := storage.InitRedis(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns)
	if err != nil {
		appLogger.Fatal("redis 初始化失败", zap.Error(err))
	}

	// 限流器：平台 API 与对外接口共用 Redis 计数器
	limiter := ratelimit.NewTokenBucketLimiter(redisClient, appLogger.Logger, true)

	// 平台 REST 客户端
	rateWindow := time.Duration(cfg.RateLimit.WindowSec) * time.Second
	platformClient := platform.NewRESTClient(
		cfg.Platform.BaseURL,
		cfg.Platform.Token,
		time.Duration(cfg.Platform.TimeoutSec)*time.Second,
		limiter,
		cfg.RateLimit.Limit,
		rateWindow,
		appLogger.Logger,
	)

	// 初始化仓储层
	inviteRepo := repositories.NewInviteRepository(postgres, redisClient)
	keyRepo := repositories.NewApiKeyRepository(postgres)

	// 初始化服务层
	inviteService := services.NewInviteService(platformClient, inviteRepo, appLogger, cfg.Platform.InviteBaseURL)
	keyService := services.NewKeyService(keyRepo)

	// 事件 ID 生成器
	idGen, err := snowflake.NewGenerator(cfg.Server.WorkerID)
	if err != nil {
		appLogger.Fatal("snowflake 初始化失败", zap.Error(err))
	}

	// 初始化 Kafka Producer（归因结果发布）
	kafkaProducer, err := mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultTopic, appLogger.Logger)
	if err != nil {
		appLogger.Warn("Kafka 生产者初始化失败，结果仅写库不发布", zap.Error(err))
		kafkaProducer = nil
	} else {
		defer kafkaProducer.Close()
	}

	// 初始化 WebSocket Hub
	hub := ws.NewHub(redisClient, appLogger.Logger)
	go hub.Run()

	// 初始化归因管线
	// 归因结果：落库 -> 失效缓存 -> 发布 Kafka -> 推送 WebSocket
	store := snapshot.NewStore()
	trk := tracker.New(store, platformClient, appLogger, tracker.Options{
		InviteBaseURL: cfg.Platform.InviteBaseURL,
		FetchTimeout:  time.Duration(cfg.Platform.TimeoutSec) * time.Second,
		Shards:        cfg.Tracker.Shards,
		QueueSize:     cfg.Tracker.QueueSize,
		OnResult: func(ctx context.Context, res tracker.Result) {
			event := &models.JoinEvent{
				ID:         idGen.MustNextID(),
				GuildID:    res.GuildID,
				UserID:     res.MemberID,
				InviteCode: res.InviteCode,
				InviterID:  res.CreatorID,
				IsVanity:   res.IsVanity,
				Error:      res.Error,
			}
			if err := inviteRepo.RecordAttribution(event); err != nil {
				appLogger.ErrorContext(ctx, "归因结果落库失败",
					zap.String("guild_id", res.GuildID),
					zap.String("member_id", res.MemberID),
					zap.Error(err),
				)
			}
			if err := inviteRepo.InvalidateGuildCaches(ctx, res.GuildID); err != nil {
				appLogger.WarnContext(ctx, "缓存失效失败", zap.String("guild_id", res.GuildID), zap.Error(err))
			}
			if kafkaProducer != nil {
				if err := kafkaProducer.SendMessage(res.GuildID, res); err != nil {
					appLogger.ErrorContext(ctx, "归因结果发布失败", zap.String("guild_id", res.GuildID), zap.Error(err))
				}
			}
			hub.BroadcastToGuild(res.GuildID, res)
		},
		OnError: func(guildID string, err error) {
			hub.BroadcastToGuild(guildID, gin.H{"guild_id": guildID, "error": err.Error()})
		},
	})
	trk.Start()
	defer trk.Stop()

	// 初始化网关事件消费者
	eventConsumer := consumer.NewEventConsumer(trk, inviteRepo, appLogger.Logger)
	consumer.StartConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.EventTopic, eventConsumer, appLogger.Logger)

	// JWT 管理器
	tokenManager := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)

	// 初始化处理器
	inviteHandler := handlers.NewInviteHandler(inviteService)
	keyHandler := handlers.NewKeyHandler(keyService)

	// 配置并创建 Gin 引擎
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// 设置路由
	routers.SetupRoutes(r,
		cfg,
		inviteHandler,
		keyHandler,
		keyService,
		tokenManager,
		limiter,
		hub,
		appLogger.Logger,
	)

	// 启动服务器
	appLogger.Info("服务器启动", zap.Int("port", cfg.Server.Port))
	if err := r.Run(":" + strconv.FormatInt(int64(cfg.Server.Port), 10)); err != nil {
		appLogger.Fatal("启动服务器失败", zap.Error(err))
	}
}
