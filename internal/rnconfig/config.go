// Package rnconfig persists Server/Client tunables as JSON, generalizing
// the teacher repository's file-transfer settings to transport settings.
package rnconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ConfigError reports an invalid field value, kept in the same shape as the
// teacher repository's own ConfigError (field, message, offending value).
type ConfigError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field %q: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ServerConfig holds the tunables a CLI or embedding application needs to
// start a Server.
type ServerConfig struct {
	Passphrase    string        `json:"passphrase"`
	Size          int           `json:"size"`
	LocalPort     uint16        `json:"local_port"`
	MaxPacketSize int           `json:"max_packet_size"`
	TimeoutLimit  time.Duration `json:"timeout_limit"`
}

// ClientConfig holds the tunables for a Client.
type ClientConfig struct {
	Passphrase    string        `json:"passphrase"`
	MaxPacketSize int           `json:"max_packet_size"`
	TimeoutLimit  time.Duration `json:"timeout_limit"`
}

// DefaultServerConfig mirrors the teacher's DefaultServerSettings: sensible
// values a CLI can start from before applying flag overrides.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Passphrase:    "",
		Size:          8,
		LocalPort:     19100,
		MaxPacketSize: 4096,
		TimeoutLimit:  5 * time.Second,
	}
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Passphrase:    "",
		MaxPacketSize: 4096,
		TimeoutLimit:  5 * time.Second,
	}
}

// Validate rejects configurations that would make CreateServer/CreateClient
// fail downstream in a confusing way.
func (c ServerConfig) Validate() error {
	if c.Size <= 0 {
		return &ConfigError{Field: "Size", Message: "must be greater than zero", Value: c.Size}
	}
	if c.MaxPacketSize <= 0 {
		return &ConfigError{Field: "MaxPacketSize", Message: "must be greater than zero", Value: c.MaxPacketSize}
	}
	return nil
}

func (c ClientConfig) Validate() error {
	if c.MaxPacketSize <= 0 {
		return &ConfigError{Field: "MaxPacketSize", Message: "must be greater than zero", Value: c.MaxPacketSize}
	}
	return nil
}

func settingsPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "rigelnet")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func load(name string, out interface{}) error {
	path, err := settingsPath(name)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func save(name string, in interface{}) error {
	path, err := settingsPath(name)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := DefaultServerConfig()
	err := load("server.json", &cfg)
	return cfg, err
}

func SaveServerConfig(cfg ServerConfig) error {
	return save("server.json", cfg)
}

func LoadClientConfig() (ClientConfig, error) {
	cfg := DefaultClientConfig()
	err := load("client.json", &cfg)
	return cfg, err
}

func SaveClientConfig(cfg ClientConfig) error {
	return save("client.json", cfg)
}
