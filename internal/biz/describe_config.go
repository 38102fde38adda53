package biz

import (
	"time"

	"describe-service/internal/conf"
	"describe-service/internal/constants"
)

// DescribeConfig 批处理配置
type DescribeConfig struct {
	DefaultProvider           string
	StopOnInsufficientCredits bool
	ItemCosts                 map[string]int64
	MaxImages                 int
	ItemTimeout               time.Duration // 单张图片外部调用超时，0 表示不限制
	DefaultConfidence         int
	ArtifactRetention         time.Duration
}

// NewDescribeConfig 从配置创建 DescribeConfig
func NewDescribeConfig(c *conf.Bootstrap) *DescribeConfig {
	config := &DescribeConfig{
		DefaultProvider:           constants.ProviderIdeogram,
		StopOnInsufficientCredits: true,
		ItemCosts:                 make(map[string]int64),
		MaxImages:                 constants.DefaultMaxImages,
		ItemTimeout:               60 * time.Second,
		DefaultConfidence:         constants.DefaultConfidence,
		ArtifactRetention:         30 * 24 * time.Hour,
	}
	if c == nil {
		return config
	}
	if d := c.Describe; d != nil {
		if d.DefaultProvider != "" {
			config.DefaultProvider = d.DefaultProvider
		}
		if d.StopOnInsufficientCredits != nil {
			config.StopOnInsufficientCredits = *d.StopOnInsufficientCredits
		}
		for k, v := range d.ItemCosts {
			config.ItemCosts[k] = v
		}
		if d.MaxImages > 0 {
			config.MaxImages = d.MaxImages
		}
		if d.ItemTimeout.AsDuration() > 0 {
			config.ItemTimeout = d.ItemTimeout.AsDuration()
		}
		if d.DefaultConfidence > 0 {
			config.DefaultConfidence = d.DefaultConfidence
		}
	}
	if c.Artifact != nil && c.Artifact.Retention.AsDuration() > 0 {
		config.ArtifactRetention = c.Artifact.Retention.AsDuration()
	}
	return config
}

// CostFor 单张图片扣除的额度，未配置时为 1
func (c *DescribeConfig) CostFor(provider string) int64 {
	if cost, ok := c.ItemCosts[provider]; ok && cost > 0 {
		return cost
	}
	return constants.DefaultItemCost
}

// Options 根据服务商生成处理选项
func (c *DescribeConfig) Options(provider string) ProcessOptions {
	if provider == "" {
		provider = c.DefaultProvider
	}
	return ProcessOptions{
		Provider:                  provider,
		StopOnInsufficientCredits: c.StopOnInsufficientCredits,
		ItemCost:                  c.CostFor(provider),
	}
}
