package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GameServer holds all configuration for the tick-scheduled game server.
type GameServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// TickInterval is the fixed-rate period of the server's cooperative
	// accept/read/simulate/write/compress-flush/liveness-sweep loop.
	TickInterval time.Duration `yaml:"tick_interval"` // default: 100ms

	// ReadTimeout is the idle-connection disconnect threshold the
	// liveness-sweep phase enforces.
	ReadTimeout time.Duration `yaml:"read_timeout"` // default: 60s

	// SendQueueSize is a per-connection outbound byte buffer capacity.
	// realmd does not pass it to the scheduler; each session's outbound
	// buffer grows as needed.
	SendQueueSize int `yaml:"send_queue_size"` // default: 4096

	// MaxConnections caps how many sessions the scheduler's accept phase
	// will admit at once; further connections are refused, not queued.
	MaxConnections int `yaml:"max_connections"` // default: 2000

	// AccountServiceURL is the base URL of the account service this
	// server exchanges login tickets against.
	AccountServiceURL string `yaml:"account_service_url"`

	// TOFUKnownHostsPath is where the account-service client's
	// trust-on-first-use known-hosts file is persisted.
	TOFUKnownHostsPath string `yaml:"tofu_known_hosts_path"`

	// Database is the Postgres instance realmd connects to and migrates
	// at startup.
	Database DatabaseConfig `yaml:"database"`

	// SaveInterval is how often the background saver runs a periodic
	// flush through its Persister between shutdowns.
	SaveInterval time.Duration `yaml:"save_interval"` // default: 5m
}

// DefaultGameServer returns GameServer config with sensible defaults.
func DefaultGameServer() GameServer {
	return GameServer{
		BindAddress:        "0.0.0.0",
		Port:               7777,
		TickInterval:       100 * time.Millisecond,
		ReadTimeout:        60 * time.Second,
		SendQueueSize:      4096,
		MaxConnections:     2000,
		AccountServiceURL:  "https://127.0.0.1:8443",
		TOFUKnownHostsPath: "known_hosts.json",
		SaveInterval:       5 * time.Minute,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "realmd",
			Password: "realmd",
			DBName:   "realmd",
			SSLMode:  "disable",
		},
	}
}

// LoadGameServer loads game server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadGameServer(path string) (GameServer, error) {
	cfg := DefaultGameServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
