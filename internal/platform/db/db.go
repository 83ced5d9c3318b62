package db

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/9expert-devsec/classroom-app-sub001/internal/platform/logger"
)

const (
	driverName     = "mysql"
	ConfigFilePath = "config/config.yaml"

	defaultAddr             = ":8443"
	defaultProgramsTimeout  = 5 * time.Second
	defaultDashboardListTop = 5
)

type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	// 空なら認証なし（開発用）
	JWTSecret string `yaml:"jwt_secret"`
}

type ProgramsConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DashboardConfig struct {
	ListLimit int `yaml:"list_limit"`
}

type Config struct {
	Version     string          `yaml:"version"`
	Mode        string          `yaml:"mode"`
	DB          DatabaseConfig  `yaml:"database"`
	Certificate Certs           `yaml:"certificate"`
	Server      ServerConfig    `yaml:"server"`
	Auth        AuthConfig      `yaml:"auth"`
	Programs    ProgramsConfig  `yaml:"programs"`
	Dashboard   DashboardConfig `yaml:"dashboard"`
	Log         logger.Config   `yaml:"log"`
}

// LoadConfig は YAML を読み、環境変数 DASHBOARD_* で上書きする。
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Log.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"DASHBOARD_MODE":         &cfg.Mode,
		"DASHBOARD_DB_HOST":      &cfg.DB.Host,
		"DASHBOARD_DB_USER":      &cfg.DB.Username,
		"DASHBOARD_DB_PASSWORD":  &cfg.DB.Password,
		"DASHBOARD_DB_NAME":      &cfg.DB.DBName,
		"DASHBOARD_JWT_SECRET":   &cfg.Auth.JWTSecret,
		"DASHBOARD_PROGRAMS_URL": &cfg.Programs.BaseURL,
		"DASHBOARD_LOG_LEVEL":    &cfg.Log.Level,
		"DASHBOARD_LISTEN_ADDR":  &cfg.Server.Addr,
	}
	for key, dst := range str {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	var invalid []string
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_DB_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			invalid = append(invalid, "DASHBOARD_DB_PORT")
		} else {
			cfg.DB.Port = port
		}
	}
	if v := strings.TrimSpace(os.Getenv("DASHBOARD_PROGRAMS_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "DASHBOARD_PROGRAMS_TIMEOUT")
		} else {
			cfg.Programs.Timeout = d
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Programs.Timeout <= 0 {
		cfg.Programs.Timeout = defaultProgramsTimeout
	}
	if cfg.Dashboard.ListLimit <= 0 {
		cfg.Dashboard.ListLimit = defaultDashboardListTop
	}
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// ダッシュボードは読み取り専用。集計クエリを並行で投げるので少し多めに取る
	db.SetMaxOpenConns(40)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
