package biz

import (
	"context"
	"strings"
)

// Image 待描述的图片
type Image struct {
	Filename string
	MimeType string
	Data     []byte
}

// IsImage 是否为图片类型
func (i *Image) IsImage() bool {
	return strings.HasPrefix(i.MimeType, "image/")
}

// Description 外部描述服务的返回
type Description struct {
	Text       string
	Confidence int    // 0 表示服务未返回，使用默认值
	Source     string // 为空时使用服务商名称
}

// Describer 外部图片描述服务
type Describer interface {
	Name() string
	Describe(ctx context.Context, img *Image) (*Description, error)
}

// DescriberRegistry 按服务商名称获取 Describer
type DescriberRegistry interface {
	Get(provider string) (Describer, error)
	Providers() []string
}
