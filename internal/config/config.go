package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks"    validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// CacheConfig contains output cache settings. The cache is optional: an
// empty RedisURL degrades every cache operation to a no-op/miss.
type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// QueueConfig contains work queue settings.
type QueueConfig struct {
	Size int `mapstructure:"size" validate:"required,gt=0"`
}

// WorkerConfig contains worker pool and retry policy settings.
type WorkerConfig struct {
	Count                  int           `mapstructure:"count"                     validate:"required,gt=0"`
	MaxRetries             int           `mapstructure:"max_retries"               validate:"gte=0"`
	RetryDelay             time.Duration `mapstructure:"retry_delay"               validate:"gte=0"`
	SoftTimeLimit          time.Duration `mapstructure:"soft_time_limit"           validate:"required,gt=0"`
	HardTimeLimit          time.Duration `mapstructure:"hard_time_limit"           validate:"required,gt=0,gtefield=SoftTimeLimit"`
	StuckTaskAge           time.Duration `mapstructure:"stuck_task_age"            validate:"required,gt=0"`
	StuckTaskCheckInterval time.Duration `mapstructure:"stuck_task_check_interval" validate:"required,gt=0"`
}

// TasksConfig contains per-kind input validation limits.
type TasksConfig struct {
	MaxPromptLength int     `mapstructure:"max_prompt_length" validate:"required,gt=0"`
	MaxCityLength   int     `mapstructure:"max_city_length"   validate:"required,gt=0"`
	MaxNumberValue  float64 `mapstructure:"max_number_value"  validate:"required,gt=0"`
}

// LLMConfig contains prompt-completion integration settings.
// An empty API key makes prompt tasks fail permanently at execution time;
// the rest of the service keeps working.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}
