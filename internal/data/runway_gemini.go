package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const runwayClausePrompt = `Look at this image and write three short scene clauses for an image-to-video model, one per motion intensity.
Each clause describes the main subject and what it does, starting with "the", "a" or "an". Do not mention the camera.
low: subtle, almost still movement. medium: natural, moderate movement. high: energetic, fast movement.
Respond with JSON only: {"low": "...", "medium": "...", "high": "..."}`

// runwayGemini 使用 Gemini 生成三档运动描述，与 gemini 描述服务共用模型和 key 配置
type runwayGemini struct {
	caller geminiCaller
	log    *log.Helper
}

// NewRunwayPromptGenerator 创建视频提示词生成器
func NewRunwayPromptGenerator(c *conf.Bootstrap, settings *SettingsRepo, logger log.Logger) biz.RunwayPromptGenerator {
	gc := &conf.Describe_Gemini{}
	if c != nil && c.Describe != nil && c.Describe.Gemini != nil {
		gc = c.Describe.Gemini
	}
	return &runwayGemini{
		caller: newGeminiCaller(gc, settings),
		log:    log.NewHelper(logger),
	}
}

func (g *runwayGemini) Generate(ctx context.Context, img *biz.Image) (*biz.MotionClauses, error) {
	text, err := g.caller.generate(ctx, img, runwayClausePrompt, func(cause error) *errors.Error {
		return describeErrors.ErrPromptFailed(cause)
	})
	if err != nil {
		return nil, err
	}
	clauses, err := parseMotionClauses(text)
	if err != nil {
		g.log.Warnf("unexpected runway prompt response: filename=%s, response=%q", img.Filename, text)
		return nil, describeErrors.ErrPromptFailed(err)
	}
	return clauses, nil
}

// parseMotionClauses 解析模型返回的 JSON，允许外层带 markdown 代码块
func parseMotionClauses(text string) (*biz.MotionClauses, error) {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var out struct {
		Low    string `json:"low"`
		Medium string `json:"medium"`
		High   string `json:"high"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, err
	}
	clauses := &biz.MotionClauses{
		Low:    strings.TrimSpace(out.Low),
		Medium: strings.TrimSpace(out.Medium),
		High:   strings.TrimSpace(out.High),
	}
	if clauses.Low == "" && clauses.Medium == "" && clauses.High == "" {
		return nil, fmt.Errorf("empty clauses")
	}
	return clauses, nil
}
