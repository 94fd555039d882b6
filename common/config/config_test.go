package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "mill",
		Password: "secret",
		Database: "paperplant",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=mill password=secret dbname=paperplant sslmode=disable", cfg.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("PP_DB_HOST", "pg.local")
	t.Setenv("PP_DB_PORT", "6543")
	t.Setenv("PP_DB_NAME", "lineage")
	t.Setenv("PP_DB_MAX_CONNS", "not-a-number")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, MaxConns: 10}
	cfg.LoadFromEnv("PP_DB")

	assert.Equal(t, "pg.local", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "lineage", cfg.Database)
	// unparsable values keep the previous setting
	assert.Equal(t, 10, cfg.MaxConns)
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("CACHE_ADDR", "redis:6380")
	t.Setenv("CACHE_DB", "3")

	cfg := RedisConfig{Addr: "localhost:6379"}
	cfg.LoadFromEnv("CACHE")

	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, 3, cfg.DB)
	assert.Empty(t, cfg.Password)
}

func TestMQTTConfig_LoadFromEnv_QoSBounds(t *testing.T) {
	t.Setenv("BUS_BROKER", "tcp://broker:1883")
	t.Setenv("BUS_QOS", "5")

	cfg := MQTTConfig{QoS: 1}
	cfg.LoadFromEnv("BUS")

	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, byte(1), cfg.QoS)
}
