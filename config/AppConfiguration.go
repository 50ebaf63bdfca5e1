package config

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"time"

	// registers the "mysql" driver with database/sql
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v2"
)

var (
	defaultDBDriver = "mysql"
	defaultDBHost   = "oseodb"
	defaultDBPort   = "3306"
)

// AppConfiguration is a structure that defines the known configuration format
// for this application.
type AppConfiguration struct {
	DatabaseConnection DatabaseConfiguration       `yaml:"database"`
	ServerSettings     ServerSettingsConfiguration `yaml:"server"`
	EventQueue         EventQueueConfiguration     `yaml:"event_queue"`
	Fulfilment         FulfilmentConfiguration     `yaml:"fulfilment"`
	Ordering           OrderingConfiguration       `yaml:"ordering"`
}

// DatabaseConfiguration defines the attributes needed for setting up a
// database connection.
type DatabaseConfiguration struct {
	// Driver specifies the database driver. Only "mysql" is supported.
	Driver string `yaml:"driver"`
	// Username is the database username.
	Username string `yaml:"username"`
	// Password is the database password.
	Password string `yaml:"password"`
	// Protocol specifies the network protocol. Only "tcp" is supported.
	Protocol string `yaml:"protocol"`
	// Host is the database hostname.
	Host string `yaml:"host"`
	// Port is the database port. Commonly 3306 for MySQL.
	Port string `yaml:"port"`
	// Schema is the database name to connect to.
	Schema string `yaml:"schema"`
	// MaxIdleConns limits idle connections held open against the database.
	MaxIdleConns int `yaml:"max_idle_conns"`
	// MaxOpenConns limits total connections held open against the database.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// ServerSettingsConfiguration holds the web server settings.
type ServerSettingsConfiguration struct {
	// ListenPort is the TCP port the server listens on.
	ListenPort string `yaml:"port"`
	// ListenBind is the network address the server binds to.
	ListenBind string `yaml:"bind"`
	// BasePath is the URL prefix under which all routes are matched.
	BasePath string `yaml:"base_path"`
	// ExternalHost is the host (and optional port) used when building
	// retrieval URLs handed back to clients.
	ExternalHost string `yaml:"external_host"`
	// ExternalScheme is the scheme used when building http retrieval URLs.
	ExternalScheme string `yaml:"external_scheme"`
}

// EventQueueConfiguration configures the Kafka publisher for the status
// event stream. An empty broker list disables publication.
type EventQueueConfiguration struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// FulfilmentConfiguration holds the async fulfilment engine settings.
type FulfilmentConfiguration struct {
	// Workers bounds the number of batches processed in parallel.
	Workers int `yaml:"workers"`
	// PollIntervalSeconds is how often an idle worker polls the batch queue.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	// MaxItemRetries is how many times a failing processor call is retried.
	MaxItemRetries int `yaml:"max_item_retries"`
	// RetryBackoffSeconds is the base of the exponential retry backoff.
	RetryBackoffSeconds int `yaml:"retry_backoff_seconds"`
	// ItemDeadlineSeconds bounds a single processor call. Default one hour.
	ItemDeadlineSeconds int `yaml:"item_deadline_seconds"`
	// ExpirySchedule is the cron spec for the expired item sweep.
	ExpirySchedule string `yaml:"expiry_schedule"`
	// PurgeSchedule is the cron spec for the failed order purge.
	PurgeSchedule string `yaml:"purge_schedule"`
	// FailedOrderMaxAgeDays is the age beyond which failed orders are purged.
	FailedOrderMaxAgeDays int `yaml:"failed_order_max_age_days"`
	// UnavailableTerminationDays terminates orders whose items have all been
	// unavailable for at least this many days.
	UnavailableTerminationDays int `yaml:"unavailable_termination_days"`
}

// PollInterval returns the queue poll interval as a duration.
func (f FulfilmentConfiguration) PollInterval() time.Duration {
	return time.Duration(f.PollIntervalSeconds) * time.Second
}

// ItemDeadline returns the per-item processor deadline as a duration.
func (f FulfilmentConfiguration) ItemDeadline() time.Duration {
	return time.Duration(f.ItemDeadlineSeconds) * time.Second
}

// RetryBackoff returns the base retry backoff as a duration.
func (f FulfilmentConfiguration) RetryBackoff() time.Duration {
	return time.Duration(f.RetryBackoffSeconds) * time.Second
}

// NewAppConfiguration reads a YAML configuration file and applies
// environment variable overrides and defaults.
func NewAppConfiguration(path string) (AppConfiguration, error) {
	var conf AppConfiguration
	if len(path) > 0 {
		contents, err := ioutil.ReadFile(path)
		if err != nil {
			return conf, fmt.Errorf("reading configuration file %s: %v", path, err)
		}
		if err := yaml.Unmarshal(contents, &conf); err != nil {
			return conf, fmt.Errorf("parsing configuration file %s: %v", path, err)
		}
	}
	conf.applyEnvironment()
	conf.applyDefaults()
	if err := conf.Ordering.normalize(); err != nil {
		return conf, err
	}
	return conf, nil
}

func (conf *AppConfiguration) applyEnvironment() {
	db := &conf.DatabaseConnection
	db.Username = GetEnvOrDefault("OSEO_DB_USERNAME", db.Username)
	db.Password = GetEnvOrDefault("OSEO_DB_PASSWORD", db.Password)
	db.Host = GetEnvOrDefault("OSEO_DB_HOST", db.Host)
	db.Port = GetEnvOrDefault("OSEO_DB_PORT", db.Port)
	db.Schema = GetEnvOrDefault("OSEO_DB_SCHEMA", db.Schema)

	srv := &conf.ServerSettings
	srv.ListenPort = GetEnvOrDefault("OSEO_SERVER_PORT", srv.ListenPort)
	srv.ListenBind = GetEnvOrDefault("OSEO_SERVER_BIND", srv.ListenBind)
	srv.ExternalHost = GetEnvOrDefault("OSEO_EXTERNAL_HOST", srv.ExternalHost)

	ord := &conf.Ordering
	ord.OnlineDataAccessHTTPRootDir = GetEnvOrDefault("OSEO_HTTP_ROOT_DIR", ord.OnlineDataAccessHTTPRootDir)
	ord.OnlineDataAccessFTPRootDir = GetEnvOrDefault("OSEO_FTP_ROOT_DIR", ord.OnlineDataAccessFTPRootDir)
}

func (conf *AppConfiguration) applyDefaults() {
	db := &conf.DatabaseConnection
	if db.Driver == "" {
		db.Driver = defaultDBDriver
	}
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == "" {
		db.Port = defaultDBPort
	}
	if db.Protocol == "" {
		db.Protocol = "tcp"
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = 4
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = 16
	}

	srv := &conf.ServerSettings
	if srv.ListenPort == "" {
		srv.ListenPort = "4467"
	}
	if srv.ListenBind == "" {
		srv.ListenBind = "0.0.0.0"
	}
	if srv.ExternalScheme == "" {
		srv.ExternalScheme = "http"
	}
	if srv.ExternalHost == "" {
		srv.ExternalHost = "localhost:" + srv.ListenPort
	}

	eq := &conf.EventQueue
	if eq.Topic == "" {
		eq.Topic = "oseo-event"
	}

	ful := &conf.Fulfilment
	if ful.Workers == 0 {
		ful.Workers = 4
	}
	if ful.PollIntervalSeconds == 0 {
		ful.PollIntervalSeconds = 5
	}
	if ful.MaxItemRetries == 0 {
		ful.MaxItemRetries = 3
	}
	if ful.RetryBackoffSeconds == 0 {
		ful.RetryBackoffSeconds = 10
	}
	if ful.ItemDeadlineSeconds == 0 {
		ful.ItemDeadlineSeconds = 3600
	}
	if ful.ExpirySchedule == "" {
		ful.ExpirySchedule = "@hourly"
	}
	if ful.PurgeSchedule == "" {
		ful.PurgeSchedule = "@daily"
	}
	if ful.FailedOrderMaxAgeDays == 0 {
		ful.FailedOrderMaxAgeDays = 30
	}
	if ful.UnavailableTerminationDays == 0 {
		ful.UnavailableTerminationDays = 7
	}

	conf.Ordering.applyDefaults()
}

// GetDatabaseHandle constructs a sqlx database handle from the configuration.
func (r DatabaseConfiguration) GetDatabaseHandle() (*sqlx.DB, error) {
	if r.Driver != defaultDBDriver {
		return nil, fmt.Errorf("unsupported database driver: %s", r.Driver)
	}
	db, err := sqlx.Open(r.Driver, r.buildDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(r.MaxIdleConns)
	db.SetMaxOpenConns(r.MaxOpenConns)
	return db, nil
}

func (r DatabaseConfiguration) buildDSN() string {
	var dbDSN = ""
	if len(r.Username) > 0 {
		dbDSN += r.Username
		if len(r.Password) > 0 {
			dbDSN += ":" + r.Password
		}
		dbDSN += "@"
	}
	if len(r.Protocol) > 0 {
		dbDSN += r.Protocol + "("
		dbDSN += r.Host + ":" + r.Port
		dbDSN += ")"
	}
	dbDSN += "/" + r.Schema
	dbDSN += "?parseTime=true&collation=utf8mb4_unicode_ci&readTimeout=30s"
	return dbDSN
}

// String renders the database configuration with the password masked.
func (r DatabaseConfiguration) String() string {
	return fmt.Sprintf("%s://%s:%s@%s(%s:%s)/%s idle=%s open=%s",
		r.Driver, r.Username, "********", r.Protocol, r.Host, r.Port, r.Schema,
		strconv.Itoa(r.MaxIdleConns), strconv.Itoa(r.MaxOpenConns))
}
