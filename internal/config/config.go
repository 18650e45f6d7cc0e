package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	MaxUploadMB  int
	LogFile      string

	StoreDriver    string // memory | sqlite | postgres | redis
	StoreDSN       string
	HistoryVersion string // смена версии формулы сбрасывает историю маржи
	ReplaceBySKU   bool   // дефолт флага «заменять по SKU» для импорта и формы
}

func Load() Config {
	port, _ := strconv.Atoi(getenv("PORT", "8082"))
	mb, _ := strconv.Atoi(getenv("MAX_UPLOAD_MB", "16"))
	origins := strings.Split(getenv("ALLOW_ORIGINS", "*"), ",")
	replace, err := strconv.ParseBool(getenv("REPLACE_BY_SKU", "true"))
	if err != nil {
		replace = true
	}
	return Config{
		Host:           getenv("HOST", "127.0.0.1"),
		Port:           port,
		AllowOrigins:   origins,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		MaxUploadMB:    mb,
		LogFile:        getenv("LOG_FILE", "logs/margin-service.log"),
		StoreDriver:    getenv("STORE_DRIVER", "memory"),
		StoreDSN:       getenv("STORE_DSN", "file:margin.db?cache=shared"),
		HistoryVersion: getenv("HISTORY_VERSION", "v2"),
		ReplaceBySKU:   replace,
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
