package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jinzhu/configor"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	App      AppSection
	Gin      GinSection
	Store    StoreSection
	Database DatabaseSection
	Redis    RedisSection
	Gemini   GeminiSection
	Game     GameSection
	Uploads  UploadsSection
	Log      LogSection
	Register RegisterSection
}

type AppSection struct {
	Port               string `default:"8080" env:"APP_PORT"`
	JWTSecret          string `env:"JWT_SECRET"`
	TokenTTLHours      int    `default:"72" env:"TOKEN_TTL_HOURS"`
	RateLimitPerMinute int    `default:"60" env:"RATE_LIMIT_PER_MINUTE"`
	// comma separated, "*" allows every origin
	AllowedOriginsRaw string `default:"*" env:"CORS_ALLOWED_ORIGINS"`
	AllowedOrigins    []string
}

// Gin framework configuration
type GinSection struct {
	Mode    string `default:"release" env:"GIN_MODE"`
	LogPath string `default:"logs/gin.log" env:"GIN_LOG_PATH"`
}

type StoreSection struct {
	// badger or mysql
	Driver     string `default:"badger" env:"STORE_DRIVER"`
	BadgerPath string `default:"data/badger" env:"BADGER_PATH"`
}

type DatabaseSection struct {
	URI      string `env:"DATABASE_URI"`
	Host     string `default:"127.0.0.1" env:"DB_HOST"`
	Port     string `default:"3306" env:"DB_PORT"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `default:"recyclebuddy" env:"DB_NAME"`
}

// Redis for quiz sessions and the token blacklist
type RedisSection struct {
	Enabled  bool   `env:"REDIS_ENABLED"`
	Host     string `default:"127.0.0.1" env:"REDIS_HOST"`
	Port     int    `default:"6379" env:"REDIS_PORT"`
	DB       int    `env:"REDIS_DB"`
	Password string `env:"REDIS_PASSWORD"`
}

type GeminiSection struct {
	APIKey             string `env:"GEMINI_API_KEY"`
	Model              string `default:"gemini-2.5-flash" env:"GEMINI_MODEL"`
	TimeoutSec         int    `default:"60" env:"GEMINI_TIMEOUT_SEC"`
	BreakerFailures    int    `default:"5" env:"GEMINI_BREAKER_FAILURES"`
	BreakerCooldownSec int    `default:"30" env:"GEMINI_BREAKER_COOLDOWN_SEC"`
}

// Game balance
type GameSection struct {
	XPCorrect        int `default:"50" env:"XP_CORRECT"`
	XPWrong          int `default:"10" env:"XP_WRONG"`
	XPPerLevel       int `default:"50" env:"XP_PER_LEVEL"`
	DailyUploadLimit int `default:"3" env:"DAILY_UPLOAD_LIMIT"`
	QuizTTLMinutes   int `default:"30" env:"QUIZ_TTL_MINUTES"`
}

type UploadsSection struct {
	Dir            string `default:"uploads" env:"UPLOAD_DIR"`
	MaxSizeMB      int    `default:"10" env:"UPLOAD_MAX_SIZE_MB"`
	RetentionHours int    `default:"0" env:"UPLOAD_RETENTION_HOURS"`
}

// Logging configuration
type LogSection struct {
	Level      string `default:"info" env:"LOG_LEVEL"`
	Path       string `default:"logs/app.log" env:"LOG_PATH"`
	MaxSizeMB  int    `default:"100" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `default:"3" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `default:"7" env:"LOG_MAX_AGE_DAYS"`
	Compress   bool   `env:"LOG_COMPRESS"`
}

// Registration security
type RegisterSection struct {
	CaptchaEnabled bool `env:"REGISTER_CAPTCHA_ENABLED"`
	MaxPerIPPerDay int  `default:"0" env:"REGISTER_MAX_PER_IP_PER_DAY"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	var files []string
	path := filepath.Join("config", "config.json")
	if _, err := os.Stat(path); err == nil {
		files = append(files, path)
	}
	var c AppConfig
	if err := configor.New(&configor.Config{ENVPrefix: "-", Silent: true}).Load(&c, files...); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	normalize(&c)

	if c.App.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.Lock()
	ok := loaded
	mu.Unlock()
	if !ok {
		return Load()
	}
	return cfg
}

func normalize(c *AppConfig) {
	c.App.AllowedOrigins = readList(c.App.AllowedOriginsRaw)
	if len(c.App.AllowedOrigins) == 0 {
		c.App.AllowedOrigins = []string{"*"}
	}
	// the Python deployment exported the key under this name
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Game.XPPerLevel <= 0 {
		c.Game.XPPerLevel = 50
	}
	if c.Game.DailyUploadLimit <= 0 {
		c.Game.DailyUploadLimit = 3
	}
	if c.Uploads.MaxSizeMB <= 0 {
		c.Uploads.MaxSizeMB = 10
	}
}

func readList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
