package configsdatabase

import (
	"fmt"
	"strings"
	"time"

	"formdesk.link/configs"
	"formdesk.link/configs/configslog"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes one database connection.
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
	Path     string // sqlite only
	LogLevel logger.LogLevel
}

var db *gorm.DB

// ConfigFromEnv reads the DB_* variables.
func ConfigFromEnv() Config {
	level := logger.Warn
	if configs.IsProduction() {
		level = logger.Error
	}
	return Config{
		Driver:   configs.GetEnv("DB_DRIVER", DriverPostgres),
		Host:     configs.GetEnv("DB_HOST", "localhost"),
		Port:     configs.GetEnv("DB_PORT", "5432"),
		User:     configs.GetEnv("DB_USER", "formdesk"),
		Password: configs.GetEnv("DB_PASSWORD", "formdesk"),
		Name:     configs.GetEnv("DB_NAME", "formdesk"),
		SSLMode:  configs.GetEnv("DB_SSLMODE", "disable"),
		TimeZone: configs.GetEnv("DB_TIMEZONE", "UTC"),
		Path:     configs.GetEnv("DB_PATH", "formdesk.db"),
		LogLevel: level,
	}
}

// sqliteDSN turns foreign key enforcement on; SQLite leaves it off per connection by default.
func sqliteDSN(path string) string {
	if strings.Contains(path, "foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

// Open connects with cfg. SQLite is limited to a single connection, which serialises writers.
func Open(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode, cfg.TimeZone)
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return conn, nil
}

// InitDB opens the process-wide connection used by the entrypoints.
func InitDB() {
	cfg := ConfigFromEnv()
	conn, err := Open(cfg)
	if err != nil {
		configslog.Log.Fatal("Database connection failed", zap.String("driver", cfg.Driver), zap.Error(err))
	}
	db = conn
	configslog.SLog.Infof("Database connection established (%s)", cfg.Driver)
}

// GetDB returns the connection opened by InitDB. Library code receives its *gorm.DB explicitly
// and must not call this.
func GetDB() *gorm.DB {
	if db == nil {
		configslog.Log.Fatal("GetDB called before InitDB")
	}
	return db
}

func CloseDB() {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		configslog.Log.Error("Could not get sql.DB for close", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		configslog.Log.Error("Database close failed", zap.Error(err))
		return
	}
	configslog.SLog.Info("Database connection closed")
}
