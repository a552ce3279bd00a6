package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use "5s" style strings
// YAMLで"5s"形式の文字列を使えるようにするtime.Durationのラッパー
type Duration time.Duration

// UnmarshalYAML parses a duration string or raw nanosecond integer
// 期間文字列またはナノ秒整数を解析
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("無効な期間形式です: %s", s)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("無効な期間形式です: %s", value.Value)
}

// Std returns the wrapped standard duration
// 標準のtime.Durationとして取得
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds application configuration
// アプリケーション設定を保持
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
// データベース設定を保持
type DatabaseConfig struct {
	// Backend selects the storage implementation: "memory" or "postgres"
	// ストレージ実装の選択: "memory" または "postgres"
	Backend  string `yaml:"backend"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// APIConfig holds API server configuration
// APIサーバー設定を保持
type APIConfig struct {
	Port          int      `yaml:"port"`
	ReadTimeout   Duration `yaml:"read_timeout"`
	WriteTimeout  Duration `yaml:"write_timeout"`
	IdleTimeout   Duration `yaml:"idle_timeout"`
	EnableCORS    bool     `yaml:"enable_cors"`
	EnableMetrics bool     `yaml:"enable_metrics"`
}

// WorkflowConfig holds procurement workflow configuration
// 調達ワークフロー設定を保持
type WorkflowConfig struct {
	DeliveryLeadTime    Duration `yaml:"delivery_lead_time"`   // 発注から納品書到着までの時間
	VerificationLatency Duration `yaml:"verification_latency"` // 検収処理の所要時間
	InvoiceLatency      Duration `yaml:"invoice_latency"`      // 請求書処理の所要時間
	DefaultRequester    string   `yaml:"default_requester"`    // 購買依頼のデフォルト申請者
	AdvisorEndpoint     string   `yaml:"advisor_endpoint"`     // 外部監査アドバイザーのURL（空なら無効）
	AdvisorTimeout      Duration `yaml:"advisor_timeout"`      // アドバイザー呼び出しのタイムアウト
	SeedMasterData      bool     `yaml:"seed_master_data"`     // 起動時にマスターデータを投入するか
}

// LoggingConfig holds logging configuration
// ログ設定を保持
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, file
}

// Load loads configuration from environment variables
// 環境変数から設定を読み込み
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Backend:  getEnv("DB_BACKEND", "memory"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "procurement"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "procurement_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		API: APIConfig{
			Port:          getEnvAsInt("API_PORT", 8080),
			ReadTimeout:   Duration(getEnvAsDuration("API_READ_TIMEOUT", 30*time.Second)),
			WriteTimeout:  Duration(getEnvAsDuration("API_WRITE_TIMEOUT", 30*time.Second)),
			IdleTimeout:   Duration(getEnvAsDuration("API_IDLE_TIMEOUT", 60*time.Second)),
			EnableCORS:    getEnvAsBool("API_ENABLE_CORS", true),
			EnableMetrics: getEnvAsBool("API_ENABLE_METRICS", true),
		},
		Workflow: WorkflowConfig{
			DeliveryLeadTime:    Duration(getEnvAsDuration("WORKFLOW_DELIVERY_LEAD_TIME", 5*time.Second)),
			VerificationLatency: Duration(getEnvAsDuration("WORKFLOW_VERIFICATION_LATENCY", 600*time.Millisecond)),
			InvoiceLatency:      Duration(getEnvAsDuration("WORKFLOW_INVOICE_LATENCY", 800*time.Millisecond)),
			DefaultRequester:    getEnv("WORKFLOW_DEFAULT_REQUESTER", "production"),
			AdvisorEndpoint:     getEnv("WORKFLOW_ADVISOR_ENDPOINT", ""),
			AdvisorTimeout:      Duration(getEnvAsDuration("WORKFLOW_ADVISOR_TIMEOUT", 10*time.Second)),
			SeedMasterData:      getEnvAsBool("WORKFLOW_SEED_MASTER_DATA", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// LoadFile loads configuration from a YAML file, with environment
// variables as the base. File values override environment values.
// YAMLファイルから設定を読み込み。環境変数を基底とし、ファイルの値が優先される。
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル読み込みに失敗しました: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイル解析に失敗しました: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
// 設定をバリデーション
func (c *Config) Validate() error {
	// データベース設定チェック
	if c.Database.Backend != "memory" && c.Database.Backend != "postgres" {
		return fmt.Errorf("無効なストレージバックエンド: %s", c.Database.Backend)
	}
	if c.Database.Backend == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("データベースホストが指定されていません")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("無効なデータベースポート: %d", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("データベースユーザーが指定されていません")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("データベース名が指定されていません")
		}
	}

	// API設定チェック
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("無効なAPIポート: %d", c.API.Port)
	}

	// ワークフロー設定チェック
	if c.Workflow.DeliveryLeadTime < 0 {
		return fmt.Errorf("納品リードタイムは0以上である必要があります")
	}
	if c.Workflow.VerificationLatency < 0 {
		return fmt.Errorf("検収所要時間は0以上である必要があります")
	}
	if c.Workflow.InvoiceLatency < 0 {
		return fmt.Errorf("請求書処理所要時間は0以上である必要があります")
	}
	if c.Workflow.DefaultRequester == "" {
		return fmt.Errorf("デフォルト申請者が指定されていません")
	}

	// ログ設定チェック
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("無効なログレベル: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("無効なログフォーマット: %s", c.Logging.Format)
	}

	return nil
}

// DSN generates PostgreSQL Data Source Name
// PostgreSQLデータソース名を生成
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// ヘルパー関数

// getEnv gets environment variable with default value
// デフォルト値付きで環境変数を取得
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
// デフォルト値付きで環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean with default value
// デフォルト値付きで環境変数をbooleanとして取得
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets environment variable as duration with default value
// デフォルト値付きで環境変数をdurationとして取得
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
