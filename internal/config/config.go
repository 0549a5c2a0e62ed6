// Package config loads the server's key=value configuration file and the
// optional YAML runtime options.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the configuration file or the dataset it
// points to does not exist.
var ErrNotFound = errors.New("not found")

// Configuration keys, in the order they are validated.
const (
	KeyLinuxPath     = "linuxpath"
	KeyRereadOnQuery = "reread_on_query"
	KeyPort          = "port"
	KeyUseSSL        = "use_ssl"
)

// MissingConfigError names a required key absent from the file.
type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: '%s'", e.Key)
}

// BoolParseError names a key whose value is not a recognized boolean.
type BoolParseError struct {
	Key   string
	Value string
}

func (e *BoolParseError) Error() string {
	return fmt.Sprintf("invalid boolean value %q for key '%s' (expected true, false, 1, 0, yes or no)", e.Value, e.Key)
}

// PortParseError reports a port that is not an integer in 0..65535.
type PortParseError struct {
	Value string
	Err   error
}

func (e *PortParseError) Error() string {
	return fmt.Sprintf("invalid port %q: %v", e.Value, e.Err)
}

func (e *PortParseError) Unwrap() error { return e.Err }

// ServerConfig is the validated content of a configuration file.
type ServerConfig struct {
	DatasetPath   string
	RereadOnQuery bool
	Port          int
	UseSSL        bool
}

func (c ServerConfig) String() string {
	return fmt.Sprintf("dataset=%s reread_on_query=%t port=%d ssl=%t",
		c.DatasetPath, c.RereadOnQuery, c.Port, c.UseSSL)
}

// ParseBool accepts true/1/yes and false/0/no in any case.
func ParseBool(key, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, &BoolParseError{Key: key, Value: value}
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, &PortParseError{Value: value, Err: err}
	}
	if port < 0 || port > 65535 {
		return 0, &PortParseError{Value: value, Err: errors.New("out of range")}
	}
	return port, nil
}

// Load parses the configuration file at path. Blank lines and lines
// starting with '#' are skipped, every other line is split on its first
// '='. Keys are case-insensitive. Either every required key is present and
// valid and the dataset exists, or an error is returned.
func Load(path string) (ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ServerConfig{}, fmt.Errorf("%w: configuration file %s", ErrNotFound, path)
		}
		return ServerConfig{}, fmt.Errorf("open configuration: %w", err)
	}
	defer f.Close()

	var (
		cfg  ServerConfig
		seen = make(map[string]bool)
	)
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
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case KeyLinuxPath:
			cfg.DatasetPath = value
		case KeyRereadOnQuery:
			if cfg.RereadOnQuery, err = ParseBool(key, value); err != nil {
				return ServerConfig{}, err
			}
		case KeyUseSSL:
			if cfg.UseSSL, err = ParseBool(key, value); err != nil {
				return ServerConfig{}, err
			}
		case KeyPort:
			if cfg.Port, err = parsePort(value); err != nil {
				return ServerConfig{}, err
			}
		default:
			continue
		}
		seen[key] = true
	}
	if err := scanner.Err(); err != nil {
		return ServerConfig{}, fmt.Errorf("read configuration: %w", err)
	}

	for _, key := range []string{KeyLinuxPath, KeyRereadOnQuery, KeyPort, KeyUseSSL} {
		if !seen[key] {
			return ServerConfig{}, &MissingConfigError{Key: key}
		}
	}

	if _, err := os.Stat(cfg.DatasetPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ServerConfig{}, fmt.Errorf("%w: dataset %s", ErrNotFound, cfg.DatasetPath)
		}
		return ServerConfig{}, fmt.Errorf("stat dataset: %w", err)
	}
	return cfg, nil
}

// Save writes cfg in the format Load reads.
func Save(path string, cfg ServerConfig) error {
	var b strings.Builder
	b.WriteString("# linequery server configuration\n")
	fmt.Fprintf(&b, "%s=%s\n", KeyLinuxPath, cfg.DatasetPath)
	fmt.Fprintf(&b, "%s=%t\n", KeyRereadOnQuery, cfg.RereadOnQuery)
	fmt.Fprintf(&b, "%s=%d\n", KeyPort, cfg.Port)
	fmt.Fprintf(&b, "%s=%t\n", KeyUseSSL, cfg.UseSSL)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
