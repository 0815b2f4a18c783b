package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Gopher0727/InviteTracker/internal/models"
	"github.com/Gopher0727/InviteTracker/internal/repositories"
	"github.com/Gopher0727/InviteTracker/internal/tracker"
)

// EventConsumer 从 Kafka 消费网关事件，入库邀请码变更并转交归因管线
type EventConsumer struct {
	trk    *tracker.Tracker
	repo   *repositories.InviteRepository
	logger *zap.Logger
}

func NewEventConsumer(trk *tracker.Tracker, repo *repositories.InviteRepository, logger *zap.Logger) *EventConsumer {
	return &EventConsumer{
		trk:    trk,
		repo:   repo,
		logger: logger,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *EventConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *EventConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *EventConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var ev tracker.Event
		if err := json.Unmarshal(message.Value, &ev); err != nil {
			consumer.logger.Warn("failed to decode gateway event",
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
			session.MarkMessage(message, "")
			continue
		}

		// 邀请码的创建/删除顺带维护持久层记录
		// 失败只记日志，不影响快照刷新
		switch ev.Type {
		case tracker.EventInviteCreated:
			if ev.InviteCode != "" {
				invite := &models.Invite{
					GuildID: ev.GuildID,
					Code:    ev.InviteCode,
				}
				if ev.Member != nil {
					invite.CreatorID = ev.Member.ID
				}
				if err := consumer.repo.UpsertInvite(invite); err != nil {
					consumer.logger.Warn("failed to persist created invite",
						zap.String("guild_id", ev.GuildID),
						zap.String("code", ev.InviteCode),
						zap.Error(err),
					)
				}
			}
		case tracker.EventInviteDeleted:
			if ev.InviteCode != "" {
				if err := consumer.repo.DeleteInviteByCode(ev.InviteCode); err != nil {
					consumer.logger.Warn("failed to delete invite record",
						zap.String("guild_id", ev.GuildID),
						zap.String("code", ev.InviteCode),
						zap.Error(err),
					)
				}
			}
		}

		// 所有事件都交给归因管线，由它决定快照刷新或归因
		consumer.trk.Submit(ev)

		session.MarkMessage(message, "")
	}
	return nil
}

func StartConsumer(brokers []string, groupID string, topic string, consumer *EventConsumer, logger *zap.Logger) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		logger.Fatal("failed to create consumer group", zap.Error(err))
	}

	ctx := context.Background()
	go func() {
		for {
			if err := client.Consume(ctx, []string{topic}, consumer); err != nil {
				logger.Error("consumer group error", zap.Error(err))
			}
			// check if context was cancelled, signaling that the consumer should stop
			if ctx.Err() != nil {
				return
			}
		}
	}()
}
