package conf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Bootstrap 服务配置根节点
type Bootstrap struct {
	Server   *Server   `json:"server"`
	Data     *Data     `json:"data"`
	Describe *Describe `json:"describe"`
	Artifact *Artifact `json:"artifact"`
	Auth     *Auth     `json:"auth"`
	Session  *Session  `json:"session"`
	Cron     *Cron     `json:"cron"`
}

// Server 传输层配置
type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data 数据层配置
type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Rocketmq *Data_RocketMQ `json:"rocketmq"`
}

type Data_Database struct {
	Driver       string   `json:"driver"` // mysql | postgres | sqlite
	Source       string   `json:"source"`
	MaxOpenConns int      `json:"max_open_conns"`
	MaxIdleConns int      `json:"max_idle_conns"`
	ConnMaxLife  Duration `json:"conn_max_life"`
	AutoMigrate  bool     `json:"auto_migrate"`
}

type Data_Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	Db           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

type Data_RocketMQ struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	Topic       string   `json:"topic"`
	RetryTimes  int32    `json:"retry_times"`
}

// Describe 图片描述批处理配置
type Describe struct {
	DefaultProvider           string             `json:"default_provider"`
	StopOnInsufficientCredits *bool              `json:"stop_on_insufficient_credits"`
	ItemCosts                 map[string]int64   `json:"item_costs"`
	MaxImages                 int                `json:"max_images"`
	MaxUploadBytes            int64              `json:"max_upload_bytes"`
	ItemTimeout               Duration           `json:"item_timeout"`
	DefaultConfidence         int                `json:"default_confidence"`
	Gemini                    *Describe_Gemini   `json:"gemini"`
	Ideogram                  *Describe_Ideogram `json:"ideogram"`
}

type Describe_Gemini struct {
	Model         string  `json:"model"`
	APIKeySetting string  `json:"api_key_setting"`
	Prompt        string  `json:"prompt"`
	RatePerSecond float64 `json:"rate_per_second"`
}

type Describe_Ideogram struct {
	Endpoint      string  `json:"endpoint"`
	APIKeySetting string  `json:"api_key_setting"`
	RatePerSecond float64 `json:"rate_per_second"`
}

// Artifact 批处理结果文件配置
type Artifact struct {
	Dir       string   `json:"dir"`
	BaseURL   string   `json:"base_url"`
	Retention Duration `json:"retention"`
}

// Auth 调用方身份校验配置（令牌由外部认证服务签发）
type Auth struct {
	JwtSecret string `json:"jwt_secret"`
	JwtIssuer string `json:"jwt_issuer"`
}

// Session 进度会话配置
type Session struct {
	TTL Duration `json:"ttl"`
}

// Cron 定时任务配置
type Cron struct {
	ReconcileSpec string `json:"reconcile_spec"`
	CleanupSpec   string `json:"cleanup_spec"`
}

// Duration accepts "30s" style strings or integer seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		d.Duration = 0
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	case string:
		if val == "" {
			d.Duration = 0
			return nil
		}
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			d.Duration = time.Duration(secs * float64(time.Second))
			return nil
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// AsDuration mirrors durationpb so call sites read the same.
func (d Duration) AsDuration() time.Duration {
	return d.Duration
}
