package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultIdeogramEndpoint = "https://api.ideogram.ai/describe"
	defaultIdeogramKey      = "IDEOGRAM_API_KEY"
)

// ideogramDescriber 调用 Ideogram describe 接口
type ideogramDescriber struct {
	endpoint   string
	keySetting string
	settings   *SettingsRepo
	client     *http.Client
	log        *log.Helper
}

func newIdeogramDescriber(c *conf.Describe_Ideogram, settings *SettingsRepo, logger log.Logger) *ideogramDescriber {
	d := &ideogramDescriber{
		endpoint:   c.Endpoint,
		keySetting: c.APIKeySetting,
		settings:   settings,
		client:     &http.Client{},
		log:        log.NewHelper(logger),
	}
	if d.endpoint == "" {
		d.endpoint = defaultIdeogramEndpoint
	}
	if d.keySetting == "" {
		d.keySetting = defaultIdeogramKey
	}
	return d
}

func (d *ideogramDescriber) Name() string {
	return constants.ProviderIdeogram
}

type ideogramResponse struct {
	Descriptions []struct {
		Text string `json:"text"`
	} `json:"descriptions"`
}

func (d *ideogramDescriber) Describe(ctx context.Context, img *biz.Image) (*biz.Description, error) {
	key, err := d.settings.Get(ctx, d.keySetting)
	if err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	if key == "" {
		return nil, describeErrors.ErrProviderNotConfigured(providerTitle(d.Name()))
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image_file", img.Filename)
	if err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	if err := w.Close(); err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Api-Key", key)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, describeErrors.ErrDescribeFailed(d.Name(),
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var out ideogramResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, describeErrors.ErrDescribeFailed(d.Name(), err)
	}
	for _, desc := range out.Descriptions {
		if text := strings.TrimSpace(desc.Text); text != "" {
			return &biz.Description{Text: text, Source: d.Name()}, nil
		}
	}
	return nil, describeErrors.ErrDescribeFailed(d.Name(), fmt.Errorf("empty description"))
}
