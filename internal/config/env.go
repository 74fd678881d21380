package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MissingEnvError reports a required environment variable that is not set.
type MissingEnvError struct {
	Key string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("required environment variable %s is not set", e.Key)
}

// Get returns the value of key, or fallback when the variable is unset
// or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Require returns the value of key, or a MissingEnvError when the
// variable is unset or empty.
func Require(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", &MissingEnvError{Key: key}
	}
	return v, nil
}

// IsSet reports whether key holds a non-empty value. Availability
// predicates use this; it must stay a read-only check.
func IsSet(key string) bool {
	return os.Getenv(key) != ""
}

// LoadDotenv loads KEY=VALUE pairs from the file at path into the
// process environment. Variables already set are never overridden.
func LoadDotenv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// LoadDotenvFromCwd searches the working directory and its parents for
// a .env file and loads the first one found. No file is not an error.
func LoadDotenvFromCwd() error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			return LoadDotenv(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}
