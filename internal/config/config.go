package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	EventsChannel      string
	JWTSecret          string
	JWTTTL             time.Duration
	JudgeBaseURL       string
	JudgeAPIKey        string
	JudgeAPIHost       string
	JudgePollInterval  time.Duration
	JudgeMaxAttempts   int
	JudgeTimeout       time.Duration
	StatsCacheTTL      time.Duration
	WeeklyGoal         int
	CORSAllowedOrigins []string
	SeedEnabled        bool
	SeedToken          string
	CompilerRateLimit  int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
// Every key maps to a PRACTICE_ prefixed variable, e.g. judge.api_key -> PRACTICE_JUDGE_API_KEY.
func Load() (Config, error) {
	_ = godotenv.Load()

	return fromViper(newViper())
}

// DatabaseURL resolves only the database url so tooling can run without the API secrets.
// A non-nil flag set may override the environment through its database-url flag.
func DatabaseURL(flags *pflag.FlagSet) (string, error) {
	_ = godotenv.Load()

	v := newViper()
	if flags != nil {
		if flag := flags.Lookup("database-url"); flag != nil {
			if err := v.BindPFlag("database.url", flag); err != nil {
				return "", fmt.Errorf("bind database-url flag: %w", err)
			}
		}
	}

	url := strings.TrimSpace(v.GetString("database.url"))
	if url == "" {
		return "", fmt.Errorf("database url must be provided")
	}
	return url, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PRACTICE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Code Practice API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "practice")
	v.SetDefault("jwt.ttl", "72h")
	v.SetDefault("judge.base_url", "https://judge0-ce.p.rapidapi.com")
	v.SetDefault("judge.api_host", "judge0-ce.p.rapidapi.com")
	v.SetDefault("judge.poll_interval_ms", 1500)
	v.SetDefault("judge.max_attempts", 10)
	v.SetDefault("judge.request_timeout", "10s")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("stats.weekly_goal", 10)
	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("ratelimit.compiler_max", 20)

	jwtTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	judgeTimeout, err := parseDuration(v, "judge.request_timeout")
	if err != nil {
		return Config{}, err
	}
	statsTTL, err := parseDuration(v, "stats.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	pollMs := v.GetInt("judge.poll_interval_ms")
	if pollMs <= 0 {
		pollMs = 1500
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		EventsChannel:      v.GetString("events.channel"),
		JWTSecret:          v.GetString("jwt.secret"),
		JWTTTL:             jwtTTL,
		JudgeBaseURL:       v.GetString("judge.base_url"),
		JudgeAPIKey:        v.GetString("judge.api_key"),
		JudgeAPIHost:       v.GetString("judge.api_host"),
		JudgePollInterval:  time.Duration(pollMs) * time.Millisecond,
		JudgeMaxAttempts:   v.GetInt("judge.max_attempts"),
		JudgeTimeout:       judgeTimeout,
		StatsCacheTTL:      statsTTL,
		WeeklyGoal:         v.GetInt("stats.weekly_goal"),
		CORSAllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
		SeedEnabled:        v.GetBool("seed.enabled"),
		SeedToken:          v.GetString("seed.token"),
		CompilerRateLimit:  v.GetInt("ratelimit.compiler_max"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.JudgeMaxAttempts <= 0 {
		cfg.JudgeMaxAttempts = 10
	}
	if cfg.WeeklyGoal <= 0 {
		cfg.WeeklyGoal = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
