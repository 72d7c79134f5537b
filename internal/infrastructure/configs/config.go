package configs

import (
	"fmt"
	"time"

	"github.com/hearthlabs/hearth/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP          HTTPConfig          `koanf:"http"`
	RateLimiter   RateLimiterConfig   `koanf:"rateLimiter"`
	Session       SessionConfig       `koanf:"session"`
	Catalog       CatalogConfig       `koanf:"catalog"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Voice         VoiceConfig         `koanf:"voice"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
}

type SessionConfig struct {
	JoinCooldown time.Duration `koanf:"join_cooldown"`
	JoinTimeout  time.Duration `koanf:"join_timeout"`
	MaxAttempts  int           `koanf:"max_attempts"`
	BaseDelay    time.Duration `koanf:"base_delay"`
}

type CatalogConfig struct {
	RefreshThrottle  time.Duration `koanf:"refresh_throttle"`
	PlaceholderCount int           `koanf:"placeholder_count"`
}

type NotificationsConfig struct {
	Capacity       int           `koanf:"capacity"`
	TTL            time.Duration `koanf:"ttl"`
	DefaultVisible int           `koanf:"default_visible"`
}

type VoiceConfig struct {
	ControlURL     string        `koanf:"control_url"`
	CommandTimeout time.Duration `koanf:"command_timeout"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "127.0.0.1")
	setDefault(k, "http.port", 7380)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	setDefault(k, "session.join_cooldown", time.Second)
	setDefault(k, "session.join_timeout", 10*time.Second)
	setDefault(k, "session.max_attempts", 3)
	setDefault(k, "session.base_delay", 500*time.Millisecond)

	setDefault(k, "catalog.refresh_throttle", 3*time.Second)
	setDefault(k, "catalog.placeholder_count", 3)

	setDefault(k, "notifications.capacity", 10)
	setDefault(k, "notifications.ttl", 10*time.Second)
	setDefault(k, "notifications.default_visible", 3)

	setDefault(k, "voice.control_url", "ws://localhost:9480/control")
	setDefault(k, "voice.command_timeout", 5*time.Second)
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}

	if cooldown := env.GetInt("SESSION_JOIN_COOLDOWN_MS", 0); cooldown > 0 {
		k.Set("session.join_cooldown", time.Duration(cooldown)*time.Millisecond)
	}
	if joinTimeout := env.GetInt("SESSION_JOIN_TIMEOUT_SECONDS", 0); joinTimeout > 0 {
		k.Set("session.join_timeout", time.Duration(joinTimeout)*time.Second)
	}
	if attempts := env.GetInt("SESSION_MAX_ATTEMPTS", 0); attempts > 0 {
		k.Set("session.max_attempts", attempts)
	}

	if throttle := env.GetInt("CATALOG_REFRESH_THROTTLE_SECONDS", 0); throttle > 0 {
		k.Set("catalog.refresh_throttle", time.Duration(throttle)*time.Second)
	}

	if controlURL := env.GetString("VOICE_CONTROL_URL", ""); controlURL != "" {
		k.Set("voice.control_url", controlURL)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
