package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Trailer  TrailerConfig  `mapstructure:"trailer"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Gutendex GutendexConfig `mapstructure:"gutendex"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AIConfig AI 服务配置（抽取/规划/重写共用的文本模型）
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // openai/azure/ark
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// TrailerConfig 预告片流水线配置
type TrailerConfig struct {
	TargetChapters    int     `mapstructure:"target_chapters"`     // 章节切分目标数
	MinChapterLength  int     `mapstructure:"min_chapter_length"`  // 章节最小长度（字符）
	TopCharacters     int     `mapstructure:"top_characters"`      // 入选主角名单的角色数
	MinCharacterScore float64 `mapstructure:"min_character_score"` // 入选主角的最低重要度分（非正则不过滤）
	Platform          string  `mapstructure:"platform"`            // douyin/bilibili/tiktok/youtube_short
	MaxDurationSec    int     `mapstructure:"max_duration_sec"`    // 预告片总时长上限
	AspectRatio       string  `mapstructure:"aspect_ratio"`        // 9:16 / 16:9 / 1:1
	Parallelism       int     `mapstructure:"parallelism"`         // 逐章抽取的并发度（1 为严格串行）
	GenerateRPS       float64 `mapstructure:"generate_rps"`        // 图片/视频生成的限速（每秒请求数）
	VideoWidth        int     `mapstructure:"video_width"`         // 成片宽度
	VideoHeight       int     `mapstructure:"video_height"`        // 成片高度
	VideoFPS          int     `mapstructure:"video_fps"`           // 成片帧率
	FontFile          string  `mapstructure:"font_file"`           // drawtext 中文字体文件
	WorkDir           string  `mapstructure:"work_dir"`            // 视频处理临时目录
}

// JobsConfig 异步任务登记配置
type JobsConfig struct {
	Store string        `mapstructure:"store"` // memory / redis
	TTL   time.Duration `mapstructure:"ttl"`   // 任务状态存活时长
}

// GutendexConfig 古腾堡书目 API 配置
type GutendexConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if c.Trailer.MaxDurationSec <= 0 {
		return errors.New("trailer.max_duration_sec must be positive")
	}
	if c.Trailer.Parallelism < 1 {
		return errors.New("trailer.parallelism must be at least 1")
	}
	if c.Jobs.Store != "" && c.Jobs.Store != "memory" && c.Jobs.Store != "redis" {
		return errors.New("jobs.store must be memory or redis")
	}

	return nil
}
