package data

import (
	"context"
	"errors"
	"os"

	"describe-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// SettingsRepo 系统配置读取，先查 settings 表再查环境变量
type SettingsRepo struct {
	data  *Data
	log   *log.Helper
	group singleflight.Group
}

// NewSettingsRepo 创建配置 repo
func NewSettingsRepo(data *Data, logger log.Logger) *SettingsRepo {
	return &SettingsRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Get 读取配置值，不存在时返回空字符串
// 同一 key 的并发读取合并为一次查询。
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		var s model.Setting
		err := r.data.db.WithContext(ctx).
			Where(&model.Setting{Key: key, IsActive: true}).
			First(&s).Error
		if err == nil && s.Value != "" {
			return s.Value, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			// 配置表不可用时退回环境变量
			r.log.Warnf("read setting failed: key=%s, error=%v", key, err)
		}
		return os.Getenv(key), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
