package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Addr        string         `yaml:"addr"`
	UserDB      DatabaseConfig `yaml:"userdb"`
	ContentDB   DatabaseConfig `yaml:"contentdb"`
	Certificate Certs          `yaml:"certificate"`
	JWTSecret   string         `yaml:"jwt_secret"`
	// Edit locks on events expire after this many minutes (default 5).
	EventLockTTLMinutes int `yaml:"event_lock_ttl_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8443"
	}
	if cfg.EventLockTTLMinutes <= 0 {
		cfg.EventLockTTLMinutes = 5
	}
	return &cfg, nil
}

func (c *Config) EventLockTTL() time.Duration {
	return time.Duration(c.EventLockTTLMinutes) * time.Minute
}

// Connect opens a pooled connection to one of the two databases
// (user DB holds accounts, content DB holds everything else).
func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare connection: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	// Both pools together must stay below MySQL max_connections.
	conn.SetMaxOpenConns(40)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return conn, nil
}
