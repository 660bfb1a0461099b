package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration. It is read once at startup and
// never mutated afterwards.
type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"90s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		MaxUploadBytes  int64         `yaml:"max_upload_bytes" default:"10485760"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"5"`
			Burst int     `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline struct {
		AudioEnabled      bool `yaml:"audio_enabled" default:"true"`
		TopK              int  `yaml:"top_k" default:"5"`
		MarketConcurrency int  `yaml:"market_concurrency" default:"4"`
		CorpusLimit       int  `yaml:"corpus_limit" default:"50"`
		Timeouts          struct {
			Transcribe time.Duration `yaml:"transcribe" default:"30s"`
			Intent     time.Duration `yaml:"intent" default:"20s"`
			Market     time.Duration `yaml:"market" default:"10s"`
			Corpus     time.Duration `yaml:"corpus" default:"3s"`
			Brief      time.Duration `yaml:"brief" default:"30s"`
			Synthesize time.Duration `yaml:"synthesize" default:"20s"`
		} `yaml:"timeouts"`
		Retrieval struct {
			SimilarityWeight float64       `yaml:"similarity_weight" default:"1.0"`
			CompanyWeight    float64       `yaml:"company_weight" default:"0.5"`
			RecencyWeight    float64       `yaml:"recency_weight" default:"0.25"`
			HalfLife         time.Duration `yaml:"half_life" default:"72h"`
		} `yaml:"retrieval"`
	} `yaml:"pipeline"`
	Services struct {
		RetryAttempts int `yaml:"retry_attempts" default:"1"`
		Transcriber   struct {
			Backend string `yaml:"backend" default:"http"`
			URL     string `yaml:"url"`
		} `yaml:"transcriber"`
		Intent struct {
			Backend string `yaml:"backend" default:"http"`
			URL     string `yaml:"url"`
		} `yaml:"intent"`
		Market struct {
			URL string `yaml:"url"`
		} `yaml:"market"`
		Brief struct {
			Backend string `yaml:"backend" default:"http"`
			URL     string `yaml:"url"`
		} `yaml:"brief"`
		Synthesizer struct {
			URL   string `yaml:"url"`
			Voice string `yaml:"voice" default:"en-US-AriaNeural"`
		} `yaml:"synthesizer"`
	} `yaml:"services"`
	Gemini struct {
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model" default:"gemini-2.0-flash"`
		Temperature float32 `yaml:"temperature" default:"0.2"`
	} `yaml:"gemini"`
	Speech struct {
		LanguageCode    string `yaml:"language_code" default:"en-US"`
		SampleRateHertz int32  `yaml:"sample_rate_hertz"`
	} `yaml:"speech"`
	Cache struct {
		Type          string        `yaml:"type" default:"memory"`
		MarketTTL     time.Duration `yaml:"market_ttl" default:"5m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
	} `yaml:"cache"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"finbrief"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic" default:"finbrief.briefs"`
		CorpusTopic  string   `yaml:"corpus_topic" default:"finbrief.corpus"`
		LogTopic     string   `yaml:"log_topic" default:"finbrief.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"finbrief-corpus"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"finbrief.corpus.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
		ChunkWords int `yaml:"chunk_words" default:"120"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finbrief"`
		Table            string        `yaml:"table" default:"corpus_chunks"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML, then a .env file if present, and
// overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	// Defaults first so that explicit YAML values, including false and 0, win.
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("AUDIO_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Pipeline.AudioEnabled = b
		}
	}
	if v := os.Getenv("STT_URL"); v != "" {
		c.Services.Transcriber.URL = v
	}
	if v := os.Getenv("INTENT_URL"); v != "" {
		c.Services.Intent.URL = v
	}
	if v := os.Getenv("MARKET_URL"); v != "" {
		c.Services.Market.URL = v
	}
	if v := os.Getenv("BRIEF_URL"); v != "" {
		c.Services.Brief.URL = v
	}
	if v := os.Getenv("TTS_URL"); v != "" {
		c.Services.Synthesizer.URL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

// UsesGemini reports whether any collaborator is backed by Gemini.
func (c *Config) UsesGemini() bool {
	return c.Services.Intent.Backend == "gemini" || c.Services.Brief.Backend == "gemini"
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Pipeline.MarketConcurrency < 1 {
		return fmt.Errorf("pipeline.market_concurrency must be >= 1, got %d", c.Pipeline.MarketConcurrency)
	}
	if c.Pipeline.Retrieval.HalfLife <= 0 {
		return fmt.Errorf("pipeline.retrieval.half_life must be positive")
	}

	switch c.Services.Transcriber.Backend {
	case "http":
		if c.Services.Transcriber.URL == "" {
			return fmt.Errorf("services.transcriber.url is required for the http backend")
		}
	case "google":
	default:
		return fmt.Errorf("services.transcriber.backend must be 'http' or 'google', got '%s'", c.Services.Transcriber.Backend)
	}
	if err := validateLLMBackend("intent", c.Services.Intent.Backend, c.Services.Intent.URL); err != nil {
		return err
	}
	if err := validateLLMBackend("brief", c.Services.Brief.Backend, c.Services.Brief.URL); err != nil {
		return err
	}
	if c.Services.Market.URL == "" {
		return fmt.Errorf("services.market.url is required")
	}
	if c.Pipeline.AudioEnabled && c.Services.Synthesizer.URL == "" {
		return fmt.Errorf("services.synthesizer.url is required when audio is enabled")
	}
	if c.UsesGemini() && c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required for the gemini backend")
	}

	switch c.Cache.Type {
	case "none", "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.type must be one of none, memory, redis, layered, got '%s'", c.Cache.Type)
	}
	if (c.Kafka.Enabled || c.Log.Collector.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	return nil
}

func validateLLMBackend(name, backend, url string) error {
	switch backend {
	case "http":
		if url == "" {
			return fmt.Errorf("services.%s.url is required for the http backend", name)
		}
	case "gemini":
	default:
		return fmt.Errorf("services.%s.backend must be 'http' or 'gemini', got '%s'", name, backend)
	}
	return nil
}
