package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 50, cfg.Booking.DefaultCapacity)
	assert.Equal(t, 1, cfg.Booking.MinLeadDays)
	assert.False(t, cfg.Booking.RejectWeekends)
	assert.Equal(t, 2*time.Second, cfg.Booking.LockWait)
	assert.Equal(t, "Europe/Lisbon", cfg.Booking.Location.String())
	assert.Equal(t, DefaultMunicipalities, cfg.Municipalities.Names)
	assert.Empty(t, cfg.Municipalities.Blacklist)
	assert.False(t, cfg.KafkaConfig.Enabled())
	assert.Empty(t, cfg.Booking.CapacityOverrides)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BOOKING_SERVICE_PORT", "9090")
	t.Setenv("BOOKING_STORE_DRIVER", "postgres")
	t.Setenv("BOOKING_DB_HOST", "db.internal")
	t.Setenv("BOOKING_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BOOKING_BOOKING_CAPACITY_OVERRIDES", "Faro=5, Porto=20")
	t.Setenv("BOOKING_BOOKING_REJECT_WEEKENDS", "true")
	t.Setenv("BOOKING_BOOKING_LOCK_WAIT", "500ms")
	t.Setenv("BOOKING_MUNICIPALITIES_NAMES", "Lisboa,Sintra")
	t.Setenv("BOOKING_MUNICIPALITIES_BLACKLIST", "Sintra")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "db.internal", cfg.DBConfig.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaConfig.Brokers)
	assert.True(t, cfg.KafkaConfig.Enabled())
	assert.Equal(t, map[string]int{"Faro": 5, "Porto": 20}, cfg.Booking.CapacityOverrides)
	assert.True(t, cfg.Booking.RejectWeekends)
	assert.Equal(t, 500*time.Millisecond, cfg.Booking.LockWait)
	assert.Equal(t, []string{"Lisboa", "Sintra"}, cfg.Municipalities.Names)
	assert.Equal(t, []string{"Sintra"}, cfg.Municipalities.Blacklist)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"BOOKING_STORE_DRIVER":               "mongo",
		"BOOKING_BOOKING_DEFAULT_CAPACITY":   "0",
		"BOOKING_BOOKING_MIN_LEAD_DAYS":      "0",
		"BOOKING_BOOKING_TIMEZONE":           "Mars/Olympus",
		"BOOKING_BOOKING_CAPACITY_OVERRIDES": "Faro",
		"BOOKING_MUNICIPALITIES_SOURCE_URL":  "not a url",
		"BOOKING_SERVICE_PORT":               "http",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
