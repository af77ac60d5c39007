package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/turf-wars/internal/domain/game"
	"github.com/riskibarqy/turf-wars/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	DBURL                      string
	CacheEnabled               bool
	CacheTTL                   time.Duration
	CORSAllowedOrigins         []string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	AnnounceEnabled            bool
	AnnounceWebhookURL         string
	AnnounceWebhookToken       string
	AnnounceTimeout            time.Duration
	AnnounceCircuitFailures    int
	AnnounceCircuitOpenWait    time.Duration
	AnnounceCircuitHalfOpenReq int
	InternalJobToken           string
	JobPoolSize                int
	JobHandlerTimeout          time.Duration
	Game                       game.Config
	LogLevel                   logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	announceEnabled, err := strconv.ParseBool(getEnv("ANNOUNCE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANNOUNCE_ENABLED: %w", err)
	}
	announceWebhookURL := strings.TrimSpace(getEnv("ANNOUNCE_WEBHOOK_URL", ""))
	if announceEnabled && announceWebhookURL == "" {
		return Config{}, fmt.Errorf("ANNOUNCE_WEBHOOK_URL is required when ANNOUNCE_ENABLED=true")
	}
	announceTimeout, err := time.ParseDuration(getEnv("ANNOUNCE_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANNOUNCE_TIMEOUT: %w", err)
	}
	if announceTimeout <= 0 {
		return Config{}, fmt.Errorf("ANNOUNCE_TIMEOUT must be > 0")
	}
	announceCircuitFailures, err := getEnvAsInt("ANNOUNCE_CIRCUIT_FAILURE_COUNT", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse ANNOUNCE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if announceCircuitFailures < 1 {
		return Config{}, fmt.Errorf("ANNOUNCE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	announceCircuitOpenWait, err := time.ParseDuration(getEnv("ANNOUNCE_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ANNOUNCE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if announceCircuitOpenWait <= 0 {
		return Config{}, fmt.Errorf("ANNOUNCE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	announceCircuitHalfOpenReq, err := getEnvAsInt("ANNOUNCE_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse ANNOUNCE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if announceCircuitHalfOpenReq < 1 {
		return Config{}, fmt.Errorf("ANNOUNCE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	jobPoolSize, err := getEnvAsInt("JOB_POOL_SIZE", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse JOB_POOL_SIZE: %w", err)
	}
	if jobPoolSize < 1 {
		return Config{}, fmt.Errorf("JOB_POOL_SIZE must be >= 1")
	}
	jobHandlerTimeout, err := time.ParseDuration(getEnv("JOB_HANDLER_TIMEOUT", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse JOB_HANDLER_TIMEOUT: %w", err)
	}
	if jobHandlerTimeout <= 0 {
		return Config{}, fmt.Errorf("JOB_HANDLER_TIMEOUT must be > 0")
	}

	gameConfig, err := loadGameConfig()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "turf-wars-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		DBURL:                      strings.TrimSpace(getEnv("DB_URL", "")),
		CacheEnabled:               cacheEnabled,
		CacheTTL:                   cacheTTL,
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		AnnounceEnabled:            announceEnabled,
		AnnounceWebhookURL:         announceWebhookURL,
		AnnounceWebhookToken:       strings.TrimSpace(getEnv("ANNOUNCE_WEBHOOK_TOKEN", "")),
		AnnounceTimeout:            announceTimeout,
		AnnounceCircuitFailures:    announceCircuitFailures,
		AnnounceCircuitOpenWait:    announceCircuitOpenWait,
		AnnounceCircuitHalfOpenReq: announceCircuitHalfOpenReq,
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		JobPoolSize:                jobPoolSize,
		JobHandlerTimeout:          jobHandlerTimeout,
		Game:                       gameConfig,
		LogLevel:                   parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

// loadGameConfig starts from the built-in defaults, applies scalar knob
// overrides, then an optional GAME_TEAMS JSON array for the team roster.
func loadGameConfig() (game.Config, error) {
	cfg := game.DefaultConfig()

	overrides := []struct {
		env    string
		target *int
	}{
		{"GAME_CANVAS_WIDTH", &cfg.CanvasWidth},
		{"GAME_CANVAS_HEIGHT", &cfg.CanvasHeight},
		{"GAME_CREDIT_COOLDOWN_SECONDS", &cfg.CreditCooldown},
		{"GAME_MAX_CREDITS", &cfg.MaxCredits},
		{"GAME_INITIAL_CREDITS", &cfg.InitialCredits},
		{"GAME_ZONE_SIZE", &cfg.ZoneSize},
	}
	for _, o := range overrides {
		value, err := getEnvAsInt(o.env, *o.target)
		if err != nil {
			return game.Config{}, fmt.Errorf("parse %s: %w", o.env, err)
		}
		*o.target = value
	}

	if raw := strings.TrimSpace(os.Getenv("GAME_TEAMS")); raw != "" {
		var teams []game.Team
		if err := sonic.UnmarshalString(raw, &teams); err != nil {
			return game.Config{}, fmt.Errorf("parse GAME_TEAMS: %w", err)
		}
		cfg.Teams = teams
	}

	if err := cfg.Validate(); err != nil {
		return game.Config{}, fmt.Errorf("invalid game config: %w", err)
	}
	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
