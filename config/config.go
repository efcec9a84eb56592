package config

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Quality   QualityConfig   `yaml:"quality"`
	Billing   BillingConfig   `yaml:"billing"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	Mode    string `yaml:"mode"` // debug, release
	SiteURL string `yaml:"site_url"`
}

type DatabaseConfig struct {
	Type       string `yaml:"type"` // sqlite, mysql, postgres
	DSN        string `yaml:"dsn"`
	ServiceDSN string `yaml:"service_dsn"` // 写操作使用的高权限连接，为空时复用 DSN
}

type LLMConfig struct {
	APIURL    string        `yaml:"api_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	APIURL      string        `yaml:"api_url"`
	APIKey      string        `yaml:"api_key"`
	MaxResults  int           `yaml:"max_results"`
	DedupWindow time.Duration `yaml:"dedup_window"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	AdminRole string `yaml:"admin_role"`
}

type QualityConfig struct {
	MinWords         int `yaml:"min_words"`
	MinHeadings      int `yaml:"min_headings"`
	MinDataPoints    int `yaml:"min_data_points"`
	MinKeyInsights   int `yaml:"min_key_insights"`
	MinSources       int `yaml:"min_sources"`
	PublishThreshold int `yaml:"publish_threshold"`
}

type BillingConfig struct {
	CostPerActionCents int `yaml:"cost_per_action_cents"`
}

type AnalyticsConfig struct {
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	PropertyID string `yaml:"property_id"`
}

type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

// envOverlay 环境变量覆盖项，只有非空值才会覆盖配置文件
type envOverlay struct {
	Port         string `envconfig:"PORT"`
	GinMode      string `envconfig:"GIN_MODE"`
	SiteURL      string `envconfig:"SITE_URL"`
	DBType       string `envconfig:"DB_TYPE"`
	DBDSN        string `envconfig:"DB_DSN"`
	DBServiceDSN string `envconfig:"DB_SERVICE_DSN"`
	LLMAPIKey    string `envconfig:"LLM_API_KEY"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	LLMBaseURL   string `envconfig:"LLM_BASE_URL"`
	LLMModel     string `envconfig:"LLM_MODEL"`
	SearchAPIURL string `envconfig:"SEARCH_API_URL"`
	SearchAPIKey string `envconfig:"SEARCH_API_KEY"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	AnalyticsKey string `envconfig:"ANALYTICS_API_KEY"`
	AnalyticsURL string `envconfig:"ANALYTICS_API_URL"`
	PropertyID   string `envconfig:"ANALYTICS_PROPERTY_ID"`
	ArchiveKey   string `envconfig:"ARCHIVE_S3_ACCESS_KEY"`
	ArchiveSec   string `envconfig:"ARCHIVE_S3_SECRET_KEY"`
	ArchiveURL   string `envconfig:"ARCHIVE_S3_ENDPOINT"`
	ArchiveBkt   string `envconfig:"ARCHIVE_S3_BUCKET"`
	ArchiveReg   string `envconfig:"ARCHIVE_S3_REGION"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			Mode:    "debug",
			SiteURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			DSN:  "./data/app.db",
		},
		LLM: LLMConfig{
			APIURL:    "https://api.openai.com/v1",
			Model:     "gpt-4o",
			MaxTokens: 8192,
			Timeout:   5 * time.Minute,
		},
		Search: SearchConfig{
			APIURL:      "https://api.firecrawl.dev/v1",
			MaxResults:  5,
			DedupWindow: 7 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			AdminRole: "admin",
		},
		Quality: QualityConfig{
			MinWords:         1500,
			MinHeadings:      4,
			MinDataPoints:    3,
			MinKeyInsights:   2,
			MinSources:       2,
			PublishThreshold: 70,
		},
		Billing: BillingConfig{
			CostPerActionCents: 50,
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Prefix: "articles",
		},
	}
}

func loadConfig() *Config {
	config := Default()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			klog.Warningf("配置文件解析失败: path=%s, err=%v", configPath, err)
		}
	}

	// .env 不存在时忽略
	_ = godotenv.Load()

	var env envOverlay
	if err := envconfig.Process("", &env); err != nil {
		klog.Warningf("环境变量解析失败: %v", err)
		return config
	}
	applyEnv(config, &env)

	return config
}

// 环境变量优先级高于配置文件
func applyEnv(config *Config, env *envOverlay) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&config.Server.Port, env.Port)
	set(&config.Server.Mode, env.GinMode)
	set(&config.Server.SiteURL, env.SiteURL)

	set(&config.Database.Type, env.DBType)
	set(&config.Database.DSN, env.DBDSN)
	set(&config.Database.ServiceDSN, env.DBServiceDSN)

	set(&config.LLM.APIKey, env.OpenAIAPIKey)
	set(&config.LLM.APIKey, env.LLMAPIKey)
	set(&config.LLM.APIURL, env.LLMBaseURL)
	set(&config.LLM.Model, env.LLMModel)

	set(&config.Search.APIURL, env.SearchAPIURL)
	set(&config.Search.APIKey, env.SearchAPIKey)

	set(&config.Auth.JWTSecret, env.JWTSecret)

	set(&config.Analytics.APIURL, env.AnalyticsURL)
	set(&config.Analytics.APIKey, env.AnalyticsKey)
	set(&config.Analytics.PropertyID, env.PropertyID)

	set(&config.Archive.AccessKey, env.ArchiveKey)
	set(&config.Archive.SecretKey, env.ArchiveSec)
	set(&config.Archive.Endpoint, env.ArchiveURL)
	set(&config.Archive.Bucket, env.ArchiveBkt)
	set(&config.Archive.Region, env.ArchiveReg)
}

// WriteDSN 返回写操作使用的连接串
func (d DatabaseConfig) WriteDSN() string {
	if d.ServiceDSN != "" {
		return d.ServiceDSN
	}
	return d.DSN
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
