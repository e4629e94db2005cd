package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr       string
	DatabaseURL      string
	LogLevel         string
	LogFile          string
	PublicBaseURL    string
	PhotoBackend     string
	PhotoPath        string
	PhotoFolder      string
	PhotoFallback    string
	PlaceholderSeed  int64
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool
	S3PublicHost     string
	RedisURL         string
	MeiliURL         string
	MeiliAPIKey      string
	GeocodeURL       string
	GeocodeCountry   string
	GeocodeUserAgent string
	GeocodeTimeout   time.Duration
	HintBackend      string
	ClaudeAPIKey     string
	ClaudeModel      string
	OllamaHost       string
	OllamaModel      string
	ProgressGoal     int
	StudentsInvolved int
}

var defaults = map[string]any{
	"LISTEN_ADDR":        ":8080",
	"DATABASE_URL":       "/data/semanadefe.db",
	"LOG_LEVEL":          "info",
	"LOG_FILE":           "",
	"PUBLIC_BASE_URL":    "http://localhost:8080",
	"PHOTO_BACKEND":      "local",
	"PHOTO_LOCAL_PATH":   "/data/photos",
	"PHOTO_FOLDER":       "initiatives",
	"PHOTO_FALLBACK":     "placeholder",
	"PLACEHOLDER_SEED":   0,
	"S3_ENDPOINT":        "localhost:9000",
	"S3_ACCESS_KEY":      "",
	"S3_SECRET_KEY":      "",
	"S3_BUCKET":          "semanadefe",
	"S3_USE_SSL":         true,
	"S3_PUBLIC_HOST":     "",
	"REDIS_URL":          "",
	"MEILI_URL":          "",
	"MEILI_API_KEY":      "",
	"GEOCODE_URL":        "https://nominatim.openstreetmap.org",
	"GEOCODE_COUNTRY":    "br",
	"GEOCODE_USER_AGENT": "semanadefe/1.0",
	"GEOCODE_TIMEOUT":    "10s",
	"HINT_BACKEND":       "none",
	"CLAUDE_API_KEY":     "",
	"CLAUDE_MODEL":       "claude-3-5-haiku-latest",
	"OLLAMA_HOST":        "http://localhost:11434",
	"OLLAMA_MODEL":       "moondream",
	"PROGRESS_GOAL":      5000,
	"STUDENTS_INVOLVED":  500,
}

// Load reads configuration from the environment, falling back to the optional
// file named by SEMANADEFE_CONFIG and then to built-in defaults.
func Load() *Config {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("SEMANADEFE_CONFIG")); path != "" {
		v.SetConfigFile(path)
		// A missing or malformed file leaves env and defaults in effect.
		_ = v.ReadInConfig()
	}

	return &Config{
		ListenAddr:       v.GetString("LISTEN_ADDR"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFile:          v.GetString("LOG_FILE"),
		PublicBaseURL:    strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		PhotoBackend:     v.GetString("PHOTO_BACKEND"),
		PhotoPath:        v.GetString("PHOTO_LOCAL_PATH"),
		PhotoFolder:      v.GetString("PHOTO_FOLDER"),
		PhotoFallback:    v.GetString("PHOTO_FALLBACK"),
		PlaceholderSeed:  v.GetInt64("PLACEHOLDER_SEED"),
		S3Endpoint:       v.GetString("S3_ENDPOINT"),
		S3AccessKey:      v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:      v.GetString("S3_SECRET_KEY"),
		S3Bucket:         v.GetString("S3_BUCKET"),
		S3UseSSL:         v.GetBool("S3_USE_SSL"),
		S3PublicHost:     v.GetString("S3_PUBLIC_HOST"),
		RedisURL:         v.GetString("REDIS_URL"),
		MeiliURL:         v.GetString("MEILI_URL"),
		MeiliAPIKey:      v.GetString("MEILI_API_KEY"),
		GeocodeURL:       strings.TrimRight(v.GetString("GEOCODE_URL"), "/"),
		GeocodeCountry:   v.GetString("GEOCODE_COUNTRY"),
		GeocodeUserAgent: v.GetString("GEOCODE_USER_AGENT"),
		GeocodeTimeout:   v.GetDuration("GEOCODE_TIMEOUT"),
		HintBackend:      v.GetString("HINT_BACKEND"),
		ClaudeAPIKey:     v.GetString("CLAUDE_API_KEY"),
		ClaudeModel:      v.GetString("CLAUDE_MODEL"),
		OllamaHost:       v.GetString("OLLAMA_HOST"),
		OllamaModel:      v.GetString("OLLAMA_MODEL"),
		ProgressGoal:     v.GetInt("PROGRESS_GOAL"),
		StudentsInvolved: v.GetInt("STUDENTS_INVOLVED"),
	}
}
