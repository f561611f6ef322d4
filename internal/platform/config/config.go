package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvFloat is GetEnvInt for floating point values.
func GetEnvFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvDuration parses values such as "30s" or "250ms". A bare number is
// read as seconds.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}

// placeholderPrefixes are values shipped in sample configs that mean "not set".
var placeholderPrefixes = []string{"在這裡", "your_", "<", "changeme", "replace"}

// IsPlaceholder reports whether a credential is missing or still holds a
// sample value.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	lower := strings.ToLower(v)
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Config is the startup snapshot shared read-only by every component.
type Config struct {
	AngleThreshold float64
	FrameThreshold int
	Cooldown       time.Duration
	ReportInterval time.Duration // 0 disables scheduled reports

	CameraIndex    int
	CaptureCommand string
	CaptureReplay  string

	Host      string
	Port      string
	LogLevel  string
	LogFormat string

	LineToken    string
	LineUserID   string
	GeminiAPIKey string
	GeminiModel  string
	ImgBBAPIKey  string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	HTTPTimeout     time.Duration
	DispatchWorkers int
	DispatchQueue   int
	StreamInterval  time.Duration
	StatusInterval  time.Duration
	StaleAfter      time.Duration
}

// FromEnv builds a Config from the process environment. Call Load first to
// pick up a .env file.
func FromEnv() Config {
	return Config{
		AngleThreshold: GetEnvFloat("ANGLE_THRESHOLD", 35),
		FrameThreshold: GetEnvInt("FRAME_THRESHOLD", 15),
		Cooldown:       time.Duration(GetEnvFloat("COOLDOWN_SECONDS", 60) * float64(time.Second)),
		ReportInterval: time.Duration(GetEnvFloat("REPORT_INTERVAL_HOURS", 1) * float64(time.Hour)),

		CameraIndex:    GetEnvInt("CAMERA_INDEX", 0),
		CaptureCommand: GetEnv("CAPTURE_COMMAND", "./pose_worker"),
		CaptureReplay:  GetEnv("CAPTURE_REPLAY", ""),

		Host:      GetEnv("HOST", "0.0.0.0"),
		Port:      GetEnv("PORT", "8085"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),

		LineToken:    GetEnv("LINE_CHANNEL_TOKEN", ""),
		LineUserID:   GetEnv("LINE_USER_ID", ""),
		GeminiAPIKey: GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:  GetEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ImgBBAPIKey:  GetEnv("IMGBB_API_KEY", ""),

		MQTTBroker:   GetEnv("MQTT_BROKER", ""),
		MQTTTopic:    GetEnv("MQTT_TOPIC", "fall-monitor/notifications"),
		MQTTClientID: GetEnv("MQTT_CLIENT_ID", "fall-monitor"),

		HTTPTimeout:     GetEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		DispatchWorkers: GetEnvInt("DISPATCH_WORKERS", 2),
		DispatchQueue:   GetEnvInt("DISPATCH_QUEUE", 16),
		StreamInterval:  GetEnvDuration("STREAM_INTERVAL", 50*time.Millisecond),
		StatusInterval:  GetEnvDuration("STATUS_INTERVAL", time.Second),
		StaleAfter:      GetEnvDuration("STALE_AFTER", 5*time.Second),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
