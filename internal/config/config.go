// Package config loads the run configuration from an optional YAML file
// and BLOOMSBOT_* environment variables. The result is built once and
// handed to each component as already-validated values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/classify"
	"github.com/abhisek/bloomsbot/internal/generate"
	"github.com/abhisek/bloomsbot/internal/logging"
	"github.com/abhisek/bloomsbot/internal/paper"
	"github.com/abhisek/bloomsbot/internal/question"
	"github.com/abhisek/bloomsbot/internal/syllabus"
	"github.com/abhisek/bloomsbot/internal/tracing"
	"github.com/abhisek/bloomsbot/internal/validate"
)

// EnvPrefix is prepended to every environment override, with dots in the
// key replaced by underscores: BLOOMSBOT_PAPER_TOTAL_MARKS.
const EnvPrefix = "BLOOMSBOT"

type Config struct {
	Log        logging.Config       `mapstructure:"log"`
	Server     ServerConfig         `mapstructure:"server"`
	Store      StoreConfig          `mapstructure:"store"`
	Redis      RedisConfig          `mapstructure:"redis"`
	Tracing    tracing.Config       `mapstructure:"tracing"`
	Chunking   syllabus.ChunkConfig `mapstructure:"chunking"`
	Generation generate.Config      `mapstructure:"generation"`
	Validation ValidationConfig     `mapstructure:"validation"`
	Classifier ClassifierConfig     `mapstructure:"classifier"`
	Paper      PaperConfig          `mapstructure:"paper"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	Mode           string        `mapstructure:"mode"`
	MaxUploadMB    int64         `mapstructure:"max_upload_mb"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type StoreConfig struct {
	// Path of the SQLite database. Empty resolves to store.DefaultDBPath.
	Path       string `mapstructure:"path"`
	KeepPapers int    `mapstructure:"keep_papers"`
	Disabled   bool   `mapstructure:"disabled"`
}

// RedisConfig enables the shared classification cache. An empty Addr keeps
// the cache in process memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ValidationConfig struct {
	validate.Rules `mapstructure:",squash"`

	// SyllabusKeywords merges the syllabus keyword set into the domain
	// vocabulary for each run.
	SyllabusKeywords bool `mapstructure:"syllabus_keywords"`
	KeywordLimit     int  `mapstructure:"keyword_limit"`
}

type ClassifierConfig struct {
	classify.AdapterConfig `mapstructure:",squash"`

	LLM               classify.LLMConfig `mapstructure:"llm"`
	HeuristicFallback bool               `mapstructure:"heuristic_fallback"`

	// CacheTTL of zero disables result caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// PaperConfig is the target in its file form: levels and types are keyed by
// name and parsed by Spec.
type PaperConfig struct {
	TotalMarks int                    `mapstructure:"total_marks"`
	Tolerance  int                    `mapstructure:"tolerance"`
	BloomQuota map[string]paper.Range `mapstructure:"bloom_quota"`
	TypeQuota  map[string]paper.Range `mapstructure:"type_quota"`
	Marks      map[string]int         `mapstructure:"marks"`

	paper.Options `mapstructure:",squash"`
}

// ConfigError reports an unusable setting. Loading fails before any
// processing starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default returns the configuration used when no file or env overrides
// exist.
func Default() *Config {
	spec := paper.DefaultSpec()
	bloomQuota := make(map[string]paper.Range, len(spec.BloomQuota))
	for level, r := range spec.BloomQuota {
		bloomQuota[level.String()] = r
	}
	marks := make(map[string]int)
	for level, m := range paper.DefaultMarkScheme() {
		marks[level.String()] = m
	}

	return &Config{
		Log: logging.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			Mode:           "release",
			MaxUploadMB:    20,
			RequestTimeout: 5 * time.Minute,
		},
		Store:      StoreConfig{KeepPapers: 200},
		Redis:      RedisConfig{Prefix: "bloomsbot:classify"},
		Chunking:   syllabus.DefaultChunkConfig(),
		Generation: generate.DefaultConfig(),
		Validation: ValidationConfig{
			Rules:            validate.DefaultRules(),
			SyllabusKeywords: true,
			KeywordLimit:     validate.DefaultKeywordLimit,
		},
		Classifier: ClassifierConfig{
			AdapterConfig: classify.DefaultAdapterConfig(),
			LLM:           classify.DefaultLLMConfig(),
			CacheTTL:      24 * time.Hour,
		},
		Paper: PaperConfig{
			TotalMarks: spec.TotalMarks,
			Tolerance:  spec.Tolerance,
			BloomQuota: bloomQuota,
			Marks:      marks,
			Options:    paper.DefaultOptions(),
		},
	}
}

// Load reads path (or bloomsbot.yaml from the working directory or
// $XDG_CONFIG_HOME/bloomsbot when path is empty), applies env overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	def := Default()
	setDefaults(v, def)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("bloomsbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	// Quota and mark maps replace the defaults wholesale rather than
	// merging key by key.
	if len(cfg.Paper.BloomQuota) == 0 && len(cfg.Paper.TypeQuota) == 0 {
		cfg.Paper.BloomQuota = def.Paper.BloomQuota
	}
	if len(cfg.Paper.Marks) == 0 {
		cfg.Paper.Marks = def.Paper.Marks
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "bloomsbot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bloomsbot"), nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.keep_papers", d.Store.KeepPapers)
	v.SetDefault("store.disabled", d.Store.Disabled)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.jaeger_endpoint", d.Tracing.JaegerEndpoint)

	v.SetDefault("chunking.min_words", d.Chunking.MinWords)
	v.SetDefault("chunking.max_words", d.Chunking.MaxWords)
	v.SetDefault("chunking.overlap_words", d.Chunking.OverlapWords)

	v.SetDefault("generation.questions_per_chunk", d.Generation.QuestionsPerChunk)
	v.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	v.SetDefault("generation.temperature", d.Generation.Temperature)
	v.SetDefault("generation.max_prior_questions", d.Generation.MaxPriorQuestions)

	v.SetDefault("validation.forbidden_words", d.Validation.ForbiddenWords)
	v.SetDefault("validation.stop_words", d.Validation.StopWords)
	v.SetDefault("validation.domain_vocabulary", d.Validation.DomainVocabulary)
	v.SetDefault("validation.min_meaningful_words", d.Validation.MinMeaningfulWords)
	v.SetDefault("validation.min_length", d.Validation.MinLength)
	v.SetDefault("validation.syllabus_keywords", d.Validation.SyllabusKeywords)
	v.SetDefault("validation.keyword_limit", d.Validation.KeywordLimit)

	v.SetDefault("classifier.concurrency", d.Classifier.Concurrency)
	v.SetDefault("classifier.timeout", d.Classifier.Timeout)
	v.SetDefault("classifier.rate_per_second", d.Classifier.RatePerSecond)
	v.SetDefault("classifier.burst", d.Classifier.Burst)
	v.SetDefault("classifier.heuristic_fallback", d.Classifier.HeuristicFallback)
	v.SetDefault("classifier.cache_ttl", d.Classifier.CacheTTL)
	v.SetDefault("classifier.llm.max_tokens", d.Classifier.LLM.MaxTokens)
	v.SetDefault("classifier.llm.temperature", d.Classifier.LLM.Temperature)
	v.SetDefault("classifier.llm.max_context_chars", d.Classifier.LLM.MaxContextChars)

	v.SetDefault("paper.total_marks", d.Paper.TotalMarks)
	v.SetDefault("paper.tolerance", d.Paper.Tolerance)
	v.SetDefault("paper.max_swaps", d.Paper.MaxSwaps)
	v.SetDefault("paper.max_branch", d.Paper.MaxBranch)
}

// Rules returns the static validation rules.
func (c *Config) Rules() validate.Rules { return c.Validation.Rules }

// PaperSpec parses the named quota maps into a paper.Spec.
func (c *Config) PaperSpec() (paper.Spec, error) {
	return c.Paper.Spec()
}

// Spec parses level and type names. Unknown names are a ConfigError.
func (p PaperConfig) Spec() (paper.Spec, error) {
	spec := paper.Spec{TotalMarks: p.TotalMarks, Tolerance: p.Tolerance}
	if len(p.BloomQuota) > 0 {
		spec.BloomQuota = make(map[bloom.Level]paper.Range, len(p.BloomQuota))
		for name, r := range p.BloomQuota {
			level, err := bloom.ParseLevel(name)
			if err != nil {
				return paper.Spec{}, &ConfigError{Field: "paper.bloom_quota." + name, Reason: err.Error()}
			}
			spec.BloomQuota[level] = r
		}
	}
	if len(p.TypeQuota) > 0 {
		spec.TypeQuota = make(map[question.Type]paper.Range, len(p.TypeQuota))
		for name, r := range p.TypeQuota {
			typ, err := question.ParseType(name)
			if err != nil {
				return paper.Spec{}, &ConfigError{Field: "paper.type_quota." + name, Reason: err.Error()}
			}
			spec.TypeQuota[typ] = r
		}
	}
	return spec, nil
}

// MarkScheme parses the per-level marks.
func (c *Config) MarkScheme() (paper.MarkScheme, error) {
	scheme := make(paper.MarkScheme, len(c.Paper.Marks))
	for name, m := range c.Paper.Marks {
		level, err := bloom.ParseLevel(name)
		if err != nil {
			return nil, &ConfigError{Field: "paper.marks." + name, Reason: err.Error()}
		}
		scheme[level] = m
	}
	return scheme, nil
}

// Validate checks every section. Errors raised by the component packages
// are rewrapped so Field carries the full config key.
func (c *Config) Validate() error {
	if c.Server.MaxUploadMB <= 0 {
		return &ConfigError{Field: "server.max_upload_mb", Reason: "must be positive"}
	}
	if c.Server.RequestTimeout < 0 {
		return &ConfigError{Field: "server.request_timeout", Reason: "must not be negative"}
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return &ConfigError{Field: "server.mode", Reason: fmt.Sprintf("unknown mode %q", c.Server.Mode)}
	}
	if c.Store.KeepPapers < 0 {
		return &ConfigError{Field: "store.keep_papers", Reason: "must not be negative"}
	}
	if err := c.Chunking.Validate(); err != nil {
		return &ConfigError{Field: "chunking", Reason: err.Error()}
	}
	if c.Generation.QuestionsPerChunk < 1 {
		return &ConfigError{Field: "generation.questions_per_chunk", Reason: "must be positive"}
	}
	if c.Generation.MaxTokens < 1 {
		return &ConfigError{Field: "generation.max_tokens", Reason: "must be positive"}
	}

	if err := c.Validation.Rules.Validate(); err != nil {
		var ve *validate.ConfigError
		if errors.As(err, &ve) {
			return &ConfigError{Field: "validation." + ve.Field, Reason: ve.Reason}
		}
		return &ConfigError{Field: "validation", Reason: err.Error()}
	}
	if c.Validation.KeywordLimit < 0 {
		return &ConfigError{Field: "validation.keyword_limit", Reason: "must not be negative"}
	}

	if c.Classifier.Concurrency < 1 {
		return &ConfigError{Field: "classifier.concurrency", Reason: "must be positive"}
	}
	if c.Classifier.RatePerSecond < 0 {
		return &ConfigError{Field: "classifier.rate_per_second", Reason: "must not be negative"}
	}
	if c.Classifier.CacheTTL < 0 {
		return &ConfigError{Field: "classifier.cache_ttl", Reason: "must not be negative"}
	}

	spec, err := c.PaperSpec()
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return rewrapPaper(err)
	}
	if err := c.Paper.Options.Validate(); err != nil {
		return rewrapPaper(err)
	}
	scheme, err := c.MarkScheme()
	if err != nil {
		return err
	}
	if err := scheme.Validate(); err != nil {
		return rewrapPaper(err)
	}
	return nil
}

func rewrapPaper(err error) error {
	var pe *paper.ConfigError
	if errors.As(err, &pe) {
		return &ConfigError{Field: "paper." + pe.Field, Reason: pe.Reason}
	}
	return &ConfigError{Field: "paper", Reason: err.Error()}
}
