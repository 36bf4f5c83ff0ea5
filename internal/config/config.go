package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Command  CommandConfig  `yaml:"command"`
	Frontend FrontendConfig `yaml:"frontend"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	MaxConnections int           `yaml:"max_connections"`
	SendBuffer     int           `yaml:"send_buffer"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongWait       time.Duration `yaml:"pong_wait"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	// MaxMessageSize caps an inbound frame in bytes. A larger frame ends the
	// session.
	MaxMessageSize int64    `yaml:"max_message_size"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WatcherConfig struct {
	Root     string        `yaml:"root"`
	Debounce time.Duration `yaml:"debounce"`
	// DebounceCapacity bounds the debounce store; 0 keeps every path seen.
	DebounceCapacity int      `yaml:"debounce_capacity"`
	IgnoreDirs       []string `yaml:"ignore_dirs"`
	IgnoreSuffixes   []string `yaml:"ignore_suffixes"`
	IgnorePatterns   []string `yaml:"ignore_patterns"`
}

type CommandConfig struct {
	Shell   string        `yaml:"shell"`
	Timeout time.Duration `yaml:"timeout"`
	Dir     string        `yaml:"dir"`
}

type FrontendConfig struct {
	InjectDir string `yaml:"inject_dir"`
	WebDir    string `yaml:"web_dir"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "127.0.0.1",
			SendBuffer:     256,
			PingInterval:   30 * time.Second,
			PongWait:       60 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxMessageSize: 1 << 20,
		},
		Watcher: WatcherConfig{
			Root:           ".",
			Debounce:       250 * time.Millisecond,
			IgnoreDirs:     []string{"target", ".git", "node_modules"},
			IgnoreSuffixes: []string{"~", ".swp", ".swo", ".tmp"},
		},
		Command: CommandConfig{
			Shell: "sh",
		},
		Frontend: FrontendConfig{
			InjectDir: "inject_scripts",
			WebDir:    "web",
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.SendBuffer <= 0 {
		return fmt.Errorf("server.send_buffer must be positive, got %d", c.Server.SendBuffer)
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("server.max_message_size must be positive, got %d", c.Server.MaxMessageSize)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.Watcher.DebounceCapacity < 0 {
		return fmt.Errorf("watcher.debounce_capacity must not be negative, got %d", c.Watcher.DebounceCapacity)
	}
	if c.Command.Shell == "" {
		return fmt.Errorf("command.shell must not be empty")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
