// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	SupplierIndex SupplierIndexConfig `mapstructure:"supplier_index"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Persistence   PersistenceConfig   `mapstructure:"persistence"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SupplierIndexConfig selects the candidate-lookup driver and tunes paging.
type SupplierIndexConfig struct {
	Driver       string `mapstructure:"driver"`         // postgres | elasticsearch | memory
	PageSize     int    `mapstructure:"page_size"`      // candidates fetched per page
	CacheTTL     int    `mapstructure:"cache_ttl"`      // profile cache TTL, milliseconds
	IndexName    string `mapstructure:"index_name"`     // elasticsearch index
	QueryTimeout int    `mapstructure:"query_timeout"`  // milliseconds
}

// MatchingConfig carries the scorer weights and threshold. Weights must sum
// to 1.0; scores land on a 0-100 scale.
type MatchingConfig struct {
	TagWeight            float64 `mapstructure:"tag_weight"`
	RatingWeight         float64 `mapstructure:"rating_weight"`
	ResponsivenessWeight float64 `mapstructure:"responsiveness_weight"`
	LocationWeight       float64 `mapstructure:"location_weight"`
	VerificationWeight   float64 `mapstructure:"verification_weight"`
	MinScore             float64 `mapstructure:"min_score"`
}

// PersistenceConfig tunes the match persister's transactional retry loop.
type PersistenceConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	RetryDelay int `mapstructure:"retry_delay"` // milliseconds, fixed between attempts
}

// NotificationConfig holds settings for the notification dispatcher.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	Webhook struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"webhook"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelay   int `mapstructure:"base_delay"`   // milliseconds, doubled per retry
	CallTimeout int `mapstructure:"call_timeout"` // milliseconds per channel call
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
