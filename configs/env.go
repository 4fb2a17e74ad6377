package configs

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads the given env files (".env" by default). A missing file is not an error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetEnv returns the value of key or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func GetEnvInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func GetEnvInt64(key string, fallback int64) int64 {
	parsed, err := strconv.ParseInt(GetEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func GetEnvBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

// IsProduction reports whether APP_ENV is "production".
func IsProduction() bool {
	return strings.EqualFold(GetEnv("APP_ENV", "development"), "production")
}
