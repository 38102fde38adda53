package data

import (
	"context"
	"sort"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

// describerRegistry 按服务商名称查找描述服务
type describerRegistry struct {
	describers map[string]biz.Describer
}

// NewDescriberRegistry 创建描述服务注册表（ideogram、gemini）
func NewDescriberRegistry(c *conf.Bootstrap, settings *SettingsRepo, logger log.Logger) biz.DescriberRegistry {
	var dc conf.Describe
	if c != nil && c.Describe != nil {
		dc = *c.Describe
	}
	ideogram := dc.Ideogram
	if ideogram == nil {
		ideogram = &conf.Describe_Ideogram{}
	}
	gemini := dc.Gemini
	if gemini == nil {
		gemini = &conf.Describe_Gemini{}
	}

	return NewRegistry(
		withRateLimit(newIdeogramDescriber(ideogram, settings, logger), ideogram.RatePerSecond),
		withRateLimit(newGeminiDescriber(gemini, settings, logger), gemini.RatePerSecond),
	)
}

// NewRegistry 用给定的 Describer 创建注册表
func NewRegistry(describers ...biz.Describer) biz.DescriberRegistry {
	r := &describerRegistry{describers: make(map[string]biz.Describer, len(describers))}
	for _, d := range describers {
		r.describers[d.Name()] = d
	}
	return r
}

func (r *describerRegistry) Get(provider string) (biz.Describer, error) {
	d, ok := r.describers[provider]
	if !ok {
		return nil, describeErrors.ErrUnknownProvider(provider)
	}
	return d, nil
}

func (r *describerRegistry) Providers() []string {
	names := make([]string, 0, len(r.describers))
	for name := range r.describers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rateLimitedDescriber 限制单个服务商的调用频率
type rateLimitedDescriber struct {
	biz.Describer
	limiter *rate.Limiter
}

// withRateLimit perSecond <= 0 时不限速
func withRateLimit(d biz.Describer, perSecond float64) biz.Describer {
	if perSecond <= 0 {
		return d
	}
	return &rateLimitedDescriber{
		Describer: d,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (d *rateLimitedDescriber) Describe(ctx context.Context, img *biz.Image) (*biz.Description, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	return d.Describer.Describe(ctx, img)
}

// providerTitle 错误信息中的服务商名称
func providerTitle(provider string) string {
	switch provider {
	case constants.ProviderIdeogram:
		return "Ideogram"
	case constants.ProviderGemini:
		return "Gemini"
	}
	return provider
}
