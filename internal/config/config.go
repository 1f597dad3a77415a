package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Backend selection
	DataBackend string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Spreadsheet export
	ExportSpreadsheetID string
	ExportSheetName     string

	// Pipeline
	BackupDir string

	// Dashboards
	WindowMonths      int
	DashboardCacheTTL time.Duration

	// Workers
	ExportBatchSize    int
	ExportScanInterval time.Duration
	RecurringInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/libros.db"),
		DataBackend:  getEnv("DATA_BACKEND", "memory"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "libros"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_records"),

		ExportSpreadsheetID: getEnv("EXPORT_SPREADSHEET_ID", ""),
		ExportSheetName:     getEnv("EXPORT_SHEET_NAME", "Ledger"),

		BackupDir: getEnv("BACKUP_DIR", "./backups"),

		WindowMonths:      getEnvInt("DASHBOARD_WINDOW_MONTHS", 12),
		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),

		ExportBatchSize:    getEnvInt("EXPORT_BATCH_SIZE", 10),
		ExportScanInterval: getEnvDuration("EXPORT_SCAN_INTERVAL", 30*time.Second),
		RecurringInterval:  getEnvDuration("RECURRING_INTERVAL", 10*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WindowMonths < 1 {
		problems = append(problems, fmt.Sprintf("invalid dashboard window %d: must be at least 1 month", c.WindowMonths))
	}
	if c.ExportBatchSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	}
	if c.ExportScanInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid export scan interval %s: must be at least 1s", c.ExportScanInterval))
	}
	if c.RecurringInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid recurring interval %s: must be at least 1s", c.RecurringInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
