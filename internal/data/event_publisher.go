package data

import (
	"context"
	"encoding/json"

	"describe-service/internal/biz"
	"describe-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
)

// eventPublisher 发送批处理完成事件到 RocketMQ，未启用时不发送
type eventPublisher struct {
	p     rocketmq.Producer
	topic string
	log   *log.Helper
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(c *conf.Bootstrap, logger log.Logger) (biz.EventPublisher, func(), error) {
	helper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		helper.Info("RocketMQ producer is disabled")
		return &eventPublisher{log: helper}, func() {}, nil
	}
	mq := c.Data.Rocketmq

	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
		producer.WithGroupName(mq.GroupName+"_producer"),
		producer.WithRetry(int(mq.RetryTimes)),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Start(); err != nil {
		// 开发环境中 RocketMQ 可能不可用，降级为不发送
		helper.Errorf("Failed to start RocketMQ producer: %v", err)
		return &eventPublisher{log: helper}, func() {}, nil
	}

	cleanup := func() {
		if err := p.Shutdown(); err != nil {
			helper.Errorf("Failed to shutdown RocketMQ producer: %v", err)
		}
	}
	return &eventPublisher{p: p, topic: mq.Topic, log: helper}, cleanup, nil
}

func (e *eventPublisher) PublishBatchCompleted(ctx context.Context, event *biz.BatchCompletedEvent) error {
	if e.p == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := primitive.NewMessage(e.topic, body)
	msg.WithKeys([]string{event.SessionID})
	_, err = e.p.SendSync(ctx, msg)
	return err
}
