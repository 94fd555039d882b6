package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "github.com/iceplantengineering/paperplant/common/config"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config settings shared by the paperplant API and broadcaster
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	// AlertEventStream Redis stream receiving alert.resolved notifications
	AlertEventStream string
	FlowCacheTTL     time.Duration

	Log struct {
		Level  string
		Format string
	}

	Broadcast BroadcastConfig
}

// BroadcastConfig polling and MQTT settings of the broadcaster
type BroadcastConfig struct {
	Interval      time.Duration
	ConsumerGroup string
	ConsumerName  string
	MQTTEnabled   bool
	MQTT          commoncfg.MQTTConfig
	Topic         string
}

// Load reads .env when present, then the environment
func Load() *Config {
	// a missing .env is normal outside local dev
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")

	// if DB is unavailable the API falls back to the in-memory store
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "paperplant")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.AlertEventStream = getEnv("ALERT_EVENT_STREAM", "paperplant:alert-events")
	cfg.FlowCacheTTL = secondsEnv("FLOW_CACHE_TTL", 10)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Broadcast.Interval = secondsEnv("BROADCAST_INTERVAL", 10)
	cfg.Broadcast.ConsumerGroup = getEnv("BROADCAST_CONSUMER_GROUP", "paperplant-broadcaster")
	cfg.Broadcast.ConsumerName = getEnv("BROADCAST_CONSUMER_NAME", "broadcaster-"+uuid.NewString()[:8])
	cfg.Broadcast.MQTTEnabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.Broadcast.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.Broadcast.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "paperplant-broadcaster-"+uuid.NewString())
	cfg.Broadcast.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.Broadcast.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.Broadcast.MQTT.QoS = 1
	cfg.Broadcast.MQTT.LoadFromEnv("MQTT")
	cfg.Broadcast.Topic = getEnv("MQTT_TOPIC", "paperplant/process-flow")

	return cfg
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// secondsEnv non-positive or malformed values fall back to def
func secondsEnv(key string, def int) time.Duration {
	n := parseInt(getEnv(key, ""), def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
