package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Lounge   LoungeConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoungeConfig はラウンジの営業・予約エンジン設定
// 営業時間やコントローラー総数はコアのロジックにハードコードせず設定で渡す
type LoungeConfig struct {
	OpenTime  string // "15:04" 形式
	CloseTime string // "15:04" 形式

	// 共有コントローラープールの総数
	TotalControllers int

	// キャッシュTTL
	SlotCacheTTL    time.Duration
	StationCacheTTL time.Duration
	TodayCacheTTL   time.Duration

	// バックグラウンドワーカーの間隔
	SweepInterval     time.Duration
	ReminderInterval  time.Duration
	ReminderLookahead time.Duration
}

// Load は環境変数から設定を読み込む
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lounge_booking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Lounge: LoungeConfig{
			OpenTime:          getEnv("LOUNGE_OPEN_TIME", "11:00"),
			CloseTime:         getEnv("LOUNGE_CLOSE_TIME", "23:00"),
			TotalControllers:  getIntEnv("LOUNGE_TOTAL_CONTROLLERS", 6),
			SlotCacheTTL:      getDurationEnv("LOUNGE_SLOT_CACHE_TTL", 5*time.Minute),
			StationCacheTTL:   getDurationEnv("LOUNGE_STATION_CACHE_TTL", 5*time.Minute),
			TodayCacheTTL:     getDurationEnv("LOUNGE_TODAY_CACHE_TTL", 1*time.Minute),
			SweepInterval:     getDurationEnv("LOUNGE_SWEEP_INTERVAL", 1*time.Minute),
			ReminderInterval:  getDurationEnv("LOUNGE_REMINDER_INTERVAL", 1*time.Minute),
			ReminderLookahead: getDurationEnv("LOUNGE_REMINDER_LOOKAHEAD", 15*time.Minute),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
