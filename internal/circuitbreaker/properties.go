// v2
// internal/circuitbreaker/properties.go
package circuitbreaker

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // wait before a half-open trial
	SuccessesToClose int           // half-open successes required to close
	LogFile          string        // optional log file, stdout is always used
}

// DefaultConfig returns the tunables used when nothing is configured.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, ResetTimeout: 30 * time.Second, SuccessesToClose: 1}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxFailures < 1 {
		c.MaxFailures = def.MaxFailures
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.SuccessesToClose < 1 {
		c.SuccessesToClose = def.SuccessesToClose
	}
	return c
}

// LoadConfigFromProperties parses a key=value .properties file. A missing
// file is reported with an error wrapping os.ErrNotExist so callers can
// fall back to DefaultConfig.
func LoadConfigFromProperties(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open breaker properties %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		switch key {
		case "circuit.maxfailures":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("circuit.maxFailures: %w", err)
			}
			cfg.MaxFailures = n
		case "circuit.resetseconds":
			secs, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Config{}, fmt.Errorf("circuit.resetSeconds: %w", err)
			}
			cfg.ResetTimeout = time.Duration(secs * float64(time.Second))
		case "circuit.successestoclose":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("circuit.successesToClose: %w", err)
			}
			cfg.SuccessesToClose = n
		case "log.file":
			cfg.LogFile = val
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, err
	}
	if cfg.MaxFailures < 1 {
		return Config{}, errors.New("MaxFailures must be >= 1")
	}
	if cfg.ResetTimeout <= 0 {
		return Config{}, errors.New("ResetTimeout must be > 0")
	}
	if cfg.SuccessesToClose < 1 {
		return Config{}, errors.New("SuccessesToClose must be >= 1")
	}
	return cfg, nil
}
