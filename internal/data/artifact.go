package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const (
	defaultArtifactDir = "data/files"
	artifactPrefix     = "descriptions-"
)

// ArtifactStore 批处理结果文件（CSV），保存在本地目录并通过 /files/ 对外提供
type ArtifactStore struct {
	dir     string
	baseURL string
	log     *log.Helper
}

// NewArtifactStore 创建结果文件存储
func NewArtifactStore(c *conf.Bootstrap, logger log.Logger) *ArtifactStore {
	s := &ArtifactStore{
		dir: defaultArtifactDir,
		log: log.NewHelper(logger),
	}
	if c != nil && c.Artifact != nil {
		if c.Artifact.Dir != "" {
			s.dir = c.Artifact.Dir
		}
		s.baseURL = strings.TrimRight(c.Artifact.BaseURL, "/")
	}
	return s
}

// Dir 文件目录
func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Generate 写入 CSV 并返回下载地址，没有数据时不生成文件
func (s *ArtifactStore) Generate(ctx context.Context, rows []*biz.ArtifactRow, at time.Time) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%s-%s.csv", artifactPrefix, at.Format(constants.TimeFormatArtifact), uuid.New().String()[:8])
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"Filename", "Description", "Confidence", "Source"}); err != nil {
		tmp.Close()
		return "", err
	}
	for _, r := range rows {
		if err := w.Write([]string{csvCell(r.Filename), csvCell(r.Description), strconv.Itoa(r.Confidence), csvCell(r.Source)}); err != nil {
			tmp.Close()
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", err
	}

	s.log.Infof("batch file generated: name=%s, rows=%d", name, len(rows))
	return s.baseURL + "/files/" + name, nil
}

// csvCell 以公式字符开头的单元格加 ' 前缀，表格软件打开时按文本显示
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

// Cleanup 删除 olderThan 之前生成的结果文件
func (s *ArtifactStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() || !strings.HasPrefix(e.Name(), artifactPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(olderThan) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				s.log.Warnf("remove batch file failed: name=%s, error=%v", e.Name(), err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
