package data

import (
	"context"
	"fmt"
	"strings"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModel  = "gemini-1.5-flash"
	defaultGeminiKey    = "GEMINI_API_KEY"
	defaultGeminiPrompt = "Describe this image in one detailed paragraph suitable for stock photo metadata. Return only the description."
)

// geminiCaller Gemini 调用的公共部分：读取 key、发送图片和提示词、拼接文本
type geminiCaller struct {
	model      string
	keySetting string
	settings   *SettingsRepo
}

func newGeminiCaller(c *conf.Describe_Gemini, settings *SettingsRepo) geminiCaller {
	g := geminiCaller{
		model:      c.Model,
		keySetting: c.APIKeySetting,
		settings:   settings,
	}
	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.keySetting == "" {
		g.keySetting = defaultGeminiKey
	}
	return g
}

// generate fail 用于包装调用失败的原因；key 未配置时返回 PROVIDER_NOT_CONFIGURED
func (g *geminiCaller) generate(ctx context.Context, img *biz.Image, prompt string, fail func(error) *errors.Error) (string, error) {
	key, err := g.settings.Get(ctx, g.keySetting)
	if err != nil {
		return "", fail(err)
	}
	if key == "" {
		return "", describeErrors.ErrProviderNotConfigured(providerTitle(constants.ProviderGemini))
	}

	// key 可能在 settings 表中被修改，每次调用创建 client
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return "", fail(fmt.Errorf("failed to create Gemini client: %w", err))
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	format := strings.TrimPrefix(img.MimeType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, img.Data), genai.Text(prompt))
	if err != nil {
		return "", fail(err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fail(fmt.Errorf("empty response"))
	}
	return text, nil
}

// geminiDescriber 调用 Gemini 多模态模型生成描述
type geminiDescriber struct {
	caller geminiCaller
	prompt string
	log    *log.Helper
}

func newGeminiDescriber(c *conf.Describe_Gemini, settings *SettingsRepo, logger log.Logger) *geminiDescriber {
	d := &geminiDescriber{
		caller: newGeminiCaller(c, settings),
		prompt: c.Prompt,
		log:    log.NewHelper(logger),
	}
	if d.prompt == "" {
		d.prompt = defaultGeminiPrompt
	}
	return d
}

func (d *geminiDescriber) Name() string {
	return constants.ProviderGemini
}

func (d *geminiDescriber) Describe(ctx context.Context, img *biz.Image) (*biz.Description, error) {
	text, err := d.caller.generate(ctx, img, d.prompt, func(cause error) *errors.Error {
		return describeErrors.ErrDescribeFailed(d.Name(), cause)
	})
	if err != nil {
		return nil, err
	}
	return &biz.Description{Text: text, Source: d.Name()}, nil
}
