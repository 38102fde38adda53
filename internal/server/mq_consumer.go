package server

import (
	"context"
	"encoding/json"

	"describe-service/internal/biz"
	"describe-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费批处理完成事件，更新月度用量
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	usage   *biz.UsageUseCase
	conf    *conf.Data
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer creates a RocketMQ consumer server
func NewMQConsumerServer(c *conf.Bootstrap, usage *biz.UsageUseCase, logger log.Logger) *MQConsumerServer {
	helper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{log: helper, enabled: false}
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Data.Rocketmq.GroupName),
		consumer.WithRetry(int(c.Data.Rocketmq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(32),
	)
	if err != nil {
		helper.Errorf("init consumer error: %v", err)
		return &MQConsumerServer{log: helper, enabled: false}
	}

	return &MQConsumerServer{
		c:       r,
		usage:   usage,
		conf:    c.Data,
		log:     helper,
		enabled: true,
	}
}

// Start starts the consumer
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.conf.Rocketmq.Topic)

	if err := s.c.Subscribe(s.conf.Rocketmq.Topic, consumer.MessageSelector{}, s.handler); err != nil {
		// 开发环境中 RocketMQ 可能不可用，不影响 HTTP 服务启动
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.conf.Rocketmq.Topic, err)
		return nil
	}
	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}
	return nil
}

// Stop stops the consumer
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	events := decodeBatchCompleted(s.log, msgs)
	if len(events) == 0 {
		return consumer.ConsumeSuccess, nil
	}
	if err := s.usage.HandleBatchCompleted(ctx, events); err != nil {
		return consumer.ConsumeRetryLater, nil
	}
	return consumer.ConsumeSuccess, nil
}

// decodeBatchCompleted 解析消息，无法解析的消息记录日志后丢弃
func decodeBatchCompleted(logger *log.Helper, msgs []*primitive.MessageExt) []*biz.BatchCompletedEvent {
	events := make([]*biz.BatchCompletedEvent, 0, len(msgs))
	for _, msg := range msgs {
		var event biz.BatchCompletedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			logger.Errorf("Unmarshal message failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		if event.SessionID == "" || event.UserID == "" {
			logger.Warnf("Drop batch completed event without session or user: %s", string(msg.Body))
			continue
		}
		events = append(events, &event)
	}
	return events
}
