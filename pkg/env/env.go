package env

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// ErrEmpty is returned when a variable is unset or blank.
var ErrEmpty = errors.New("environment variable has an empty value")

// =============================================================================
// Environment Variables with Defaults
// =============================================================================

// GetEnvStringOrDefault returns the env value or a default if not set
func GetEnvStringOrDefault(envName, defaultValue string) string {
	v, err := GetEnvString(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvBoolOrDefault returns the env value or a default if not set
func GetEnvBoolOrDefault(envName string, defaultValue bool) bool {
	v, err := GetEnvBool(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvIntOrDefault returns the env value or a default if not set
func GetEnvIntOrDefault(envName string, defaultValue int) int {
	v, err := GetEnvInt(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvDurationOrDefault accepts a Go duration ("90s") or a bare integer
// taken as milliseconds ("300000").
func GetEnvDurationOrDefault(envName string, defaultValue time.Duration) time.Duration {
	v, err := GetEnvDuration(envName)
	if err != nil {
		return defaultValue
	}
	return v
}

// GetEnvListOrDefault accepts a JSON array or a comma separated list.
func GetEnvListOrDefault(envName string, defaultValue []string) []string {
	v, err := GetEnvList(envName)
	if err != nil || len(v) == 0 {
		return defaultValue
	}
	return v
}

// =============================================================================
// Core Environment Variable Getters
// =============================================================================

func SanitizeEnv(envName string) (string, error) {
	if len(envName) == 0 {
		return "", errors.New("environment variable name should not be empty")
	}

	retValue := strings.TrimSpace(os.Getenv(envName))
	if len(retValue) == 0 {
		return "", errors.Join(ErrEmpty, errors.New("'"+envName+"'"))
	}

	return retValue, nil
}

func GetEnvString(envName string) (string, error) {
	return SanitizeEnv(envName)
}

func GetEnvBool(envName string) (bool, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return false, err
	}

	return strconv.ParseBool(envValue)
}

func GetEnvInt(envName string) (int, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return 0, err
	}

	retValue, err := strconv.ParseInt(envValue, 0, 0)
	if err != nil {
		return 0, err
	}

	return int(retValue), nil
}

func GetEnvFloat32(envName string) (float32, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return 0, err
	}

	retValue, err := strconv.ParseFloat(envValue, 32)
	if err != nil {
		return 0, err
	}

	return float32(retValue), nil
}

func GetEnvDuration(envName string) (time.Duration, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return 0, err
	}

	if ms, err := strconv.ParseInt(envValue, 10, 64); err == nil {
		if ms < 0 {
			return 0, errors.New("negative duration for '" + envName + "'")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	return time.ParseDuration(envValue)
}

func GetEnvList(envName string) ([]string, error) {
	envValue, err := SanitizeEnv(envName)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(envValue, "[") {
		var items []string
		if err := json.Unmarshal([]byte(envValue), &items); err != nil {
			return nil, err
		}
		return compact(items), nil
	}

	return compact(strings.Split(envValue, ",")), nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
