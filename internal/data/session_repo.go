package data

import (
	"context"
	"encoding/json"
	"time"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

const defaultSessionTTL = 2 * time.Hour

// sessionRepo 批处理进度会话，存放在 Redis，多实例共享
type sessionRepo struct {
	data *Data
	ttl  time.Duration
	log  *log.Helper
}

// NewSessionRepo 创建会话 repo
func NewSessionRepo(data *Data, c *conf.Bootstrap, logger log.Logger) biz.SessionRepo {
	ttl := defaultSessionTTL
	if c != nil && c.Session != nil && c.Session.TTL.AsDuration() > 0 {
		ttl = c.Session.TTL.AsDuration()
	}
	return &sessionRepo{
		data: data,
		ttl:  ttl,
		log:  log.NewHelper(logger),
	}
}

func (r *sessionRepo) key(id string) string {
	return constants.RedisKeySession + id
}

func (r *sessionRepo) Create(ctx context.Context, s *biz.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.data.rdb.SetNX(ctx, r.key(s.ID), b, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return describeErrors.ErrInvalidArgument("session already exists")
	}
	return nil
}

// Update 覆盖进度并刷新过期时间
func (r *sessionRepo) Update(ctx context.Context, s *biz.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.data.rdb.Set(ctx, r.key(s.ID), b, r.ttl).Err()
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*biz.Session, error) {
	b, err := r.data.rdb.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, describeErrors.ErrSessionNotFound(id)
		}
		return nil, describeErrors.ErrSessionStoreFailed(err)
	}
	var s biz.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, describeErrors.ErrSessionStoreFailed(err)
	}
	return &s, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	return r.data.rdb.Del(ctx, r.key(id)).Err()
}
