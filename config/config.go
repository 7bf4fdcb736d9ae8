package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server     `mapstructure:"server" validate:"required"`
	Dataset    Dataset    `mapstructure:"dataset" validate:"required"`
	CORS       CORS       `mapstructure:"cors" validate:"required"`
	Logging    Logging    `mapstructure:"logging" validate:"required"`
	Monitoring Monitoring `mapstructure:"monitoring" validate:"required"`
	QueryLog   QueryLog   `mapstructure:"queryLog" validate:"required"`
}

type Server struct {
	Host               *string        `mapstructure:"host" validate:"required"`
	Port               *int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout        *time.Duration `mapstructure:"readTimeout" validate:"required,gt=0"`
	WriteTimeout       *time.Duration `mapstructure:"writeTimeout" validate:"required,gt=0"`
	MaxRequestBodySize *int           `mapstructure:"maxRequestBodySize" validate:"required,min=1"`
	// ResponseShape selects the POST /metrics body layout. See
	// serving.ResponseShape for the accepted values.
	ResponseShape *string `mapstructure:"responseShape" validate:"oneof=map envelope array"`
}

type Dataset struct {
	Source *string `mapstructure:"source" validate:"oneof=file redis sqlite"`
	// Cache loads the dataset once at startup instead of on every request.
	Cache       *bool          `mapstructure:"cache" validate:"required"`
	LoadTimeout *time.Duration `mapstructure:"loadTimeout" validate:"required,gt=0"`
	File        File           `mapstructure:"file"`
	Redis       DatasetRedis   `mapstructure:"redis"`
	SQLite      SQLite         `mapstructure:"sqlite"`
}

type File struct {
	Path string `mapstructure:"path"`
}

type DatasetRedis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Key      string `mapstructure:"key"`
}

type SQLite struct {
	Path  string `mapstructure:"path"`
	Table string `mapstructure:"table"`
}

type CORS struct {
	AllowOrigins  []string `mapstructure:"allowOrigins" validate:"required,min=1"`
	AllowMethods  []string `mapstructure:"allowMethods" validate:"required,min=1,dive,oneof=GET POST OPTIONS"`
	AllowHeaders  []string `mapstructure:"allowHeaders"`
	ExposeHeaders []string `mapstructure:"exposeHeaders"`
	MaxAge        *int     `mapstructure:"maxAge" validate:"required,min=0"`
}

type Logging struct {
	Driver   *string  `mapstructure:"driver" validate:"oneof=noop stdout influxdb"`
	InfluxDB InfluxDB `mapstructure:"influxdb"`
}

type InfluxDB struct {
	Host   string `mapstructure:"host"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type Monitoring struct {
	Collector  *string        `mapstructure:"collector" validate:"oneof=tachymeter array"`
	Window     *int           `mapstructure:"window" validate:"required,min=1"`
	Interval   *time.Duration `mapstructure:"interval" validate:"required,gt=0"`
	Prometheus Prometheus     `mapstructure:"prometheus"`
}

type Prometheus struct {
	Enabled *bool   `mapstructure:"enabled" validate:"required"`
	Path    *string `mapstructure:"path" validate:"required,startswith=/"`
}

type QueryLog struct {
	Driver   *string       `mapstructure:"driver" validate:"oneof=noop influxdb rmq"`
	InfluxDB InfluxDB      `mapstructure:"influxdb"`
	Redis    QueryLogRedis `mapstructure:"redis"`
}

type QueryLogRedis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Queue    string `mapstructure:"queue"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.maxRequestBodySize", 1<<20)
	v.SetDefault("server.responseShape", "map")

	v.SetDefault("dataset.source", "file")
	v.SetDefault("dataset.cache", true)
	v.SetDefault("dataset.loadTimeout", "5s")
	v.SetDefault("dataset.file.path", "data/latency.json")
	v.SetDefault("dataset.redis.addr", "localhost:6379")
	v.SetDefault("dataset.redis.password", "")
	v.SetDefault("dataset.redis.db", 0)
	v.SetDefault("dataset.redis.key", "regionstats:latency")
	v.SetDefault("dataset.sqlite.path", "data/latency.db")
	v.SetDefault("dataset.sqlite.table", "observations")

	v.SetDefault("cors.allowOrigins", []string{"*"})
	v.SetDefault("cors.allowMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowHeaders", []string{"Content-Type", "Authorization", "Accept"})
	v.SetDefault("cors.exposeHeaders", []string{"*"})
	v.SetDefault("cors.maxAge", 600)

	v.SetDefault("logging.driver", "stdout")
	v.SetDefault("logging.influxdb.host", "")
	v.SetDefault("logging.influxdb.token", "")
	v.SetDefault("logging.influxdb.org", "")
	v.SetDefault("logging.influxdb.bucket", "")

	v.SetDefault("monitoring.collector", "tachymeter")
	v.SetDefault("monitoring.window", 1000)
	v.SetDefault("monitoring.interval", "10s")
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.path", "/internal/metrics")

	v.SetDefault("queryLog.driver", "noop")
	v.SetDefault("queryLog.influxdb.host", "")
	v.SetDefault("queryLog.influxdb.token", "")
	v.SetDefault("queryLog.influxdb.org", "")
	v.SetDefault("queryLog.influxdb.bucket", "")
	v.SetDefault("queryLog.redis.addr", "localhost:6379")
	v.SetDefault("queryLog.redis.password", "")
	v.SetDefault("queryLog.redis.db", 0)
	v.SetDefault("queryLog.redis.queue", "regionstats_queries")
}

// ReadConfig loads the configuration from path, or from config.yaml in the
// working directory or /app when path is empty. Every key can be overridden
// by an environment variable such as REGIONSTATS_DATASET_FILE_PATH. If path
// is empty and no config file exists, defaults are used.
func ReadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("regionstats")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error when reading config file: err = %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error occured while reading configuration file: err = %w", err)
	}
	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

var validate = validator.New()

// Validate checks field constraints and then the settings each selected
// driver or source depends on.
func Validate(config *Config) error {
	ve := &ValidationError{}

	if err := validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("unable to validate config: err = %w", err)
		}
		for _, fieldErr := range validationErrors {
			ve.Add(fieldErr.Error())
		}
		// Cross-field checks dereference fields which may be nil here.
		return ve
	}

	switch *config.Dataset.Source {
	case "file":
		if config.Dataset.File.Path == "" {
			ve.Add("dataset.file.path is required when dataset.source is file")
		}
	case "redis":
		if config.Dataset.Redis.Addr == "" {
			ve.Add("dataset.redis.addr is required when dataset.source is redis")
		}
		if config.Dataset.Redis.Key == "" {
			ve.Add("dataset.redis.key is required when dataset.source is redis")
		}
	case "sqlite":
		if config.Dataset.SQLite.Path == "" {
			ve.Add("dataset.sqlite.path is required when dataset.source is sqlite")
		}
		if config.Dataset.SQLite.Table == "" {
			ve.Add("dataset.sqlite.table is required when dataset.source is sqlite")
		}
	}

	if *config.Logging.Driver == "influxdb" {
		validateInfluxDB(ve, "logging.influxdb", config.Logging.InfluxDB)
	}

	switch *config.QueryLog.Driver {
	case "influxdb":
		validateInfluxDB(ve, "queryLog.influxdb", config.QueryLog.InfluxDB)
	case "rmq":
		if config.QueryLog.Redis.Addr == "" {
			ve.Add("queryLog.redis.addr is required when queryLog.driver is rmq")
		}
		if config.QueryLog.Redis.Queue == "" {
			ve.Add("queryLog.redis.queue is required when queryLog.driver is rmq")
		}
	}

	// The Prometheus route is registered ahead of the query routes and would
	// shadow GET /metrics.
	if *config.Monitoring.Prometheus.Enabled && *config.Monitoring.Prometheus.Path == "/metrics" {
		ve.Add("monitoring.prometheus.path must not be /metrics, which serves queries")
	}

	for _, origin := range config.CORS.AllowOrigins {
		if origin == "*" && len(config.CORS.AllowOrigins) > 1 {
			ve.Add("cors.allowOrigins must not mix \"*\" with explicit origins")
			break
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateInfluxDB(ve *ValidationError, prefix string, influx InfluxDB) {
	if influx.Host == "" {
		ve.Add(prefix + ".host is required")
	}
	if influx.Token == "" {
		ve.Add(prefix + ".token is required")
	}
	if influx.Org == "" {
		ve.Add(prefix + ".org is required")
	}
	if influx.Bucket == "" {
		ve.Add(prefix + ".bucket is required")
	}
}

// ValidationError collects multiple validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}
