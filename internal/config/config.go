package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Image    ImageConfig    `mapstructure:"image"`
	Stock    StockConfig    `mapstructure:"stock"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Job      JobConfig      `mapstructure:"job"`
	Render   RenderConfig   `mapstructure:"render"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Queue    string `mapstructure:"queue"`
}

// Enabled reports whether jobs should go through the redis queue.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// Enabled reports whether outputs should be published to object storage.
func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type CacheConfig struct {
	Root string `mapstructure:"root"`
	// UseIndex keeps a fingerprint -> path index in the database instead of
	// relying only on directory scans.
	UseIndex bool `mapstructure:"use_index"`
}

// Dir returns the cache directory for a bucket name (speech, images, ...).
func (c *CacheConfig) Dir(bucket string) string {
	return filepath.Join(c.Root, bucket+"_cache")
}

type SpeechConfig struct {
	Provider  string              `mapstructure:"provider"`
	Voice     string              `mapstructure:"voice"`
	Fallbacks []string            `mapstructure:"fallbacks"`
	Providers ProviderCredentials `mapstructure:"providers"`
}

type ImageConfig struct {
	Provider  string              `mapstructure:"provider"`
	Width     int                 `mapstructure:"width"`
	Height    int                 `mapstructure:"height"`
	Style     string              `mapstructure:"style"`
	Fallbacks []string            `mapstructure:"fallbacks"`
	Providers ProviderCredentials `mapstructure:"providers"`
}

type StockConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	MinDuration int    `mapstructure:"min_duration"`
	Limit       int    `mapstructure:"limit"`
	MaxVideos   int    `mapstructure:"max_videos"`
	MaxTerms    int    `mapstructure:"max_terms"`
}

type LLMConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

type JobConfig struct {
	WorkDir            string  `mapstructure:"work_dir"`
	ReelsMinChars      int     `mapstructure:"reels_min_chars"`
	StoryMinChars      int     `mapstructure:"story_min_chars"`
	MaxSegmentDuration float64 `mapstructure:"max_segment_duration"`
	SubtitleMaxChars   int     `mapstructure:"subtitle_max_chars"`
	Concurrency        int     `mapstructure:"concurrency"`
	KeepSpeech         bool    `mapstructure:"keep_speech"`
}

type RenderConfig struct {
	FFmpeg       string  `mapstructure:"ffmpeg"`
	FFprobe      string  `mapstructure:"ffprobe"`
	Threads      int     `mapstructure:"threads"`
	Width        int     `mapstructure:"width"`
	Height       int     `mapstructure:"height"`
	FontName     string  `mapstructure:"font_name"`
	FontSize     int     `mapstructure:"font_size"`
	TextColor    string  `mapstructure:"text_color"`
	StrokeColor  string  `mapstructure:"stroke_color"`
	StrokeWidth  int     `mapstructure:"stroke_width"`
	Watermark    string  `mapstructure:"watermark"`
	PreviewStart float64 `mapstructure:"preview_start"`
	PreviewEnd   float64 `mapstructure:"preview_end"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file, environment and .env files.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the
//     working directory for config.yaml.
// Returns:
//   - *Config: populated configuration.
//   - error: non-nil if the file exists but cannot be read or decoded.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists; production mode reads .env.production
	envFile := ".env"
	if os.Getenv("ENV") == "production" {
		envFile = ".env.production"
	}
	_ = godotenv.Load(envFile)

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets come from the environment
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("redis.addr", "REDIS_URL")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "OPENAI_BASE_URL")
	v.BindEnv("llm.model", "OPENAI_MODEL_NAME")
	v.BindEnv("stock.api_key", "PEXELS_API_KEY")
	v.BindEnv("speech.providers.elevenlabs.api_key", "ELEVENLABS_API_KEY")
	v.BindEnv("speech.providers.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("image.provider", "IMAGE_PROVIDER")
	v.BindEnv("image.providers.deepinfra.api_key", "DEEPINFRA_API_KEY")
	v.BindEnv("image.providers.together.api_key", "TOGETHER_API_KEY")
	v.BindEnv("stock.max_videos", "MAX_BG_VIDEOS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/narrator.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.queue", "q_narrator_jobs")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("cache.root", "./cache")
	v.SetDefault("cache.use_index", true)
	v.SetDefault("speech.provider", "elevenlabs")
	v.SetDefault("speech.voice", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("speech.fallbacks", []string{})
	v.SetDefault("image.provider", "deepinfra")
	v.SetDefault("image.width", 1024)
	v.SetDefault("image.height", 1024)
	v.SetDefault("image.style", "Human Realism")
	v.SetDefault("image.fallbacks", []string{})
	v.SetDefault("stock.provider", "pexels")
	v.SetDefault("stock.base_url", "https://api.pexels.com")
	v.SetDefault("stock.min_duration", 10)
	v.SetDefault("stock.limit", 2)
	v.SetDefault("stock.max_videos", 10)
	v.SetDefault("stock.max_terms", 10)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", 4*time.Second)
	v.SetDefault("job.work_dir", "/tmp/narrator")
	v.SetDefault("job.reels_min_chars", 100)
	v.SetDefault("job.story_min_chars", 80)
	v.SetDefault("job.max_segment_duration", 5.0)
	v.SetDefault("job.subtitle_max_chars", 15)
	v.SetDefault("job.concurrency", 4)
	v.SetDefault("render.ffmpeg", "ffmpeg")
	v.SetDefault("render.ffprobe", "ffprobe")
	v.SetDefault("render.threads", 2)
	v.SetDefault("render.width", 1080)
	v.SetDefault("render.height", 1920)
	v.SetDefault("render.font_name", "Luckiest Guy")
	v.SetDefault("render.font_size", 70)
	v.SetDefault("render.text_color", "#ffffff")
	v.SetDefault("render.stroke_color", "#ffffff")
	v.SetDefault("render.stroke_width", 5)
	v.SetDefault("render.preview_start", 1.0)
	v.SetDefault("render.preview_end", 1.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.BindEnv("log.file", "LOG_FILE")
}
