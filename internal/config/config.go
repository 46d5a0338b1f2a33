package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DefaultMunicipalities seed the registry when no list is configured.
var DefaultMunicipalities = []string{
	"Lisboa", "Porto", "Coimbra", "Braga", "Faro",
	"Aveiro", "Setúbal", "Évora", "Leiria", "Viseu",
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int    `validate:"gte=0"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

// KafkaConfig holds the broker settings. No brokers disables events.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// BookingConfig holds the booking rules.
type BookingConfig struct {
	DefaultCapacity   int            `validate:"gt=0"`
	CapacityOverrides map[string]int `validate:"dive,gte=0"`
	MinLeadDays       int            `validate:"gte=1"`
	RejectWeekends    bool
	Timezone          string        `validate:"required"`
	LockWait          time.Duration `validate:"gt=0"`
	RetryDelay        time.Duration `validate:"gte=0"`
	Location          *time.Location
}

// MunicipalityConfig holds the registry sources.
type MunicipalityConfig struct {
	Names     []string
	SourceURL string `validate:"omitempty,url"`
	Blacklist []string
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port           string `validate:"required,numeric"`
	AppEnv         string `validate:"required"`
	StoreDriver    string `validate:"oneof=memory postgres"`
	DBConfig       DatabaseConfig
	KafkaConfig    KafkaConfig
	Booking        BookingConfig
	Municipalities MunicipalityConfig
}

// Load reads configuration from config.yaml (if present) and BOOKING_* environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("BOOKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("service_port", "8080")
	v.SetDefault("store.driver", DriverMemory)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "booking_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "5m")
	v.SetDefault("db.migrations_dir", "migrations")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.group_prefix", "")

	v.SetDefault("booking.default_capacity", 50)
	v.SetDefault("booking.capacity_overrides", "")
	v.SetDefault("booking.min_lead_days", 1)
	v.SetDefault("booking.reject_weekends", false)
	v.SetDefault("booking.timezone", "Europe/Lisbon")
	v.SetDefault("booking.lock_wait", "2s")
	v.SetDefault("booking.retry_delay", "100ms")

	v.SetDefault("municipalities.names", DefaultMunicipalities)
	v.SetDefault("municipalities.source_url", "")
	v.SetDefault("municipalities.blacklist", []string{})
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	overrides, err := capacityOverrides(v, "booking.capacity_overrides")
	if err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Port:        v.GetString("service_port"),
		AppEnv:      v.GetString("app_env"),
		StoreDriver: strings.ToLower(v.GetString("store.driver")),
		DBConfig: DatabaseConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetString("db.port"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			DBName:          v.GetString("db.name"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			MigrationsDir:   v.GetString("db.migrations_dir"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     stringList(v, "kafka.brokers"),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		Booking: BookingConfig{
			DefaultCapacity:   v.GetInt("booking.default_capacity"),
			CapacityOverrides: overrides,
			MinLeadDays:       v.GetInt("booking.min_lead_days"),
			RejectWeekends:    v.GetBool("booking.reject_weekends"),
			Timezone:          v.GetString("booking.timezone"),
			LockWait:          v.GetDuration("booking.lock_wait"),
			RetryDelay:        v.GetDuration("booking.retry_delay"),
		},
		Municipalities: MunicipalityConfig{
			Names:     stringList(v, "municipalities.names"),
			SourceURL: v.GetString("municipalities.source_url"),
			Blacklist: stringList(v, "municipalities.blacklist"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and resolves the booking timezone.
func (c *ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StoreDriver == DriverPostgres && (c.DBConfig.Host == "" || c.DBConfig.DBName == "") {
		return fmt.Errorf("invalid configuration: db.host and db.name are required for the postgres store")
	}

	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("invalid configuration: booking.timezone: %w", err)
	}
	c.Booking.Location = loc
	return nil
}

// stringList reads a list given either as a YAML sequence or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	var parts []string
	if s, ok := v.Get(key).(string); ok {
		parts = strings.Split(s, ",")
	} else {
		parts = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// capacityOverrides reads a map given either as YAML or as "Name=N,Other=M".
func capacityOverrides(v *viper.Viper, key string) (map[string]int, error) {
	out := map[string]int{}

	if s, ok := v.Get(key).(string); ok {
		for _, pair := range strings.Split(s, ",") {
			if pair = strings.TrimSpace(pair); pair == "" {
				continue
			}
			name, n, found := strings.Cut(pair, "=")
			if !found {
				return nil, fmt.Errorf("invalid %s entry %q: expected Name=N", key, pair)
			}
			capacity, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, pair, err)
			}
			out[strings.TrimSpace(name)] = capacity
		}
		return out, nil
	}

	for name, raw := range v.GetStringMapString(key) {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, name, err)
		}
		out[name] = capacity
	}
	return out, nil
}
