package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPath is where Load looks for the JSON configuration file.
var DefaultPath = filepath.Join("config", "config.json")

// UnitLocation pins a unit to coordinates for the check-in radius rule.
type UnitLocation struct {
	Latitude  float64
	Longitude float64
}

// AppConfig holds file and environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	GinMode            string
	// Reject tokens whose jti is on the Redis revocation list
	TokenRevocation bool
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// Redis for caching, locks and token revocation
	RedisDisabled bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Gamification rules
	CheckInRewardPoints int
	LevelingPolicy      string
	CheckInRadiusMeters float64
	UnitLocations       map[string]UnitLocation
	EventPoints         map[string]int64
	NodeID              int64
	TimeZone            string
	RankingCacheTTLSec  int
	// External user directory
	UserDirectoryURL     string
	DirectoryTimeoutSec  int
	DirectoryCacheTTLSec int
	DirectoryConcurrency int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration once. It should be called during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom(DefaultPath)
	if err != nil {
		log.Fatal(err)
	}
	Set(c)
	return cfg
}

// LoadFrom reads path (missing files are ignored), fills defaults and
// applies environment overrides.
// Precedence: JSON file -> defaults -> environment variable overrides.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return AppConfig{}, fmt.Errorf("read %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return AppConfig{}, err
	}
	if c.JWTSecret == "" {
		return AppConfig{}, errors.New("JWT_SECRET must be set in the config file or environment variables")
	}
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return AppConfig{}, fmt.Errorf("unsupported DBDriver %q", c.DBDriver)
	}
	return c, nil
}

// Set installs c as the process configuration.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getFloat := func(m map[string]any, key string) float64 {
		if f, ok := m[key].(float64); ok {
			return f
		}
		return 0
	}
	getInt := func(m map[string]any, key string) int {
		return int(getFloat(m, key))
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.GinMode = getString(app, "GinMode")
		out.TokenRevocation = getBool(app, "TokenRevocation")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "DBDriver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.DBSSLMode = getString(dbs, "DBSSLMode")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisDisabled = getBool(rds, "Disabled")
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if gm, ok := raw["gamification"].(map[string]any); ok {
		out.CheckInRewardPoints = getInt(gm, "CheckInRewardPoints")
		out.LevelingPolicy = getString(gm, "LevelingPolicy")
		out.CheckInRadiusMeters = getFloat(gm, "CheckInRadiusMeters")
		out.NodeID = int64(getInt(gm, "NodeID"))
		out.TimeZone = getString(gm, "TimeZone")
		out.RankingCacheTTLSec = getInt(gm, "RankingCacheTTLSec")
		if units, ok := gm["UnitLocations"].(map[string]any); ok {
			out.UnitLocations = make(map[string]UnitLocation, len(units))
			for id, v := range units {
				if m, ok := v.(map[string]any); ok {
					out.UnitLocations[id] = UnitLocation{
						Latitude:  getFloat(m, "Latitude"),
						Longitude: getFloat(m, "Longitude"),
					}
				}
			}
		}
		if points, ok := gm["EventPoints"].(map[string]any); ok {
			out.EventPoints = make(map[string]int64, len(points))
			for event := range points {
				if v := getInt(points, event); v > 0 {
					out.EventPoints[strings.ToUpper(event)] = int64(v)
				}
			}
		}
	}

	if dir, ok := raw["directory"].(map[string]any); ok {
		out.UserDirectoryURL = getString(dir, "URL")
		out.DirectoryTimeoutSec = getInt(dir, "TimeoutSec")
		out.DirectoryCacheTTLSec = getInt(dir, "CacheTTLSec")
		out.DirectoryConcurrency = getInt(dir, "Concurrency")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "lifetrack"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CheckInRewardPoints == 0 {
		c.CheckInRewardPoints = 10
	}
	if c.LevelingPolicy == "" {
		c.LevelingPolicy = "sqrt"
	}
	if c.CheckInRadiusMeters == 0 {
		c.CheckInRadiusMeters = 200
	}
	if c.DirectoryTimeoutSec == 0 {
		c.DirectoryTimeoutSec = 3
	}
	if c.DirectoryCacheTTLSec == 0 {
		c.DirectoryCacheTTLSec = 600
	}
	if c.DirectoryConcurrency == 0 {
		c.DirectoryConcurrency = 8
	}
	if c.RankingCacheTTLSec == 0 {
		c.RankingCacheTTLSec = 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var firstErr error
	atoi := func(key, v string) int {
		i, err := strconv.Atoi(v)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid integer value %s=%q: %w", key, v, err)
		}
		return i
	}

	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = atoi("RATE_LIMIT_PER_MINUTE", v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("TOKEN_REVOCATION", ""); v != "" {
		c.TokenRevocation = v == "true"
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_DISABLED", ""); v != "" {
		c.RedisDisabled = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = atoi("REDIS_PORT", v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = atoi("REDIS_DB", v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("CHECKIN_REWARD_POINTS", ""); v != "" {
		c.CheckInRewardPoints = atoi("CHECKIN_REWARD_POINTS", v)
	}
	if v := getEnv("LEVELING_POLICY", ""); v != "" {
		c.LevelingPolicy = v
	}
	if v := getEnv("CHECKIN_RADIUS_METERS", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid number CHECKIN_RADIUS_METERS=%q: %w", v, err)
		}
		c.CheckInRadiusMeters = f
	}
	if v := getEnv("NODE_ID", ""); v != "" {
		c.NodeID = int64(atoi("NODE_ID", v))
	}
	if v := getEnv("TZ_NAME", ""); v != "" {
		c.TimeZone = v
	}
	if v := getEnv("USER_DIRECTORY_URL", ""); v != "" {
		c.UserDirectoryURL = v
	}
	return firstErr
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
