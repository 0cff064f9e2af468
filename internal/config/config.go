// Package config defines the service configuration. All settings are fixed
// at process start; there is no runtime reconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 31338
	DefaultMaxClients = 64
	DefaultLogLevel   = "info"
)

// Config holds every tunable of the server process.
type Config struct {
	Host       string
	Port       int
	MaxClients int
	LogLevel   string
	LogFile    string
	StatsAddr  string // empty disables the stats HTTP server
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		MaxClients: DefaultMaxClients,
		LogLevel:   DefaultLogLevel,
	}
}

// FromViper reads the configuration out of v, falling back to defaults for
// unset keys.
func FromViper(v *viper.Viper) Config {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("max-clients", DefaultMaxClients)
	v.SetDefault("log-level", DefaultLogLevel)

	return Config{
		Host:       v.GetString("host"),
		Port:       v.GetInt("port"),
		MaxClients: v.GetInt("max-clients"),
		LogLevel:   v.GetString("log-level"),
		LogFile:    v.GetString("log-file"),
		StatsAddr:  v.GetString("stats-addr"),
	}
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String renders the configuration for startup logging.
func (c Config) String() string {
	logFile := c.LogFile
	if logFile == "" {
		logFile = "(stdout)"
	}
	statsAddr := c.StatsAddr
	if statsAddr == "" {
		statsAddr = "(disabled)"
	}
	return fmt.Sprintf(
		"listen address: %s\nmax clients:    %d\nlog level:      %s\nlog file:       %s\nstats address:  %s",
		c.Addr(), c.MaxClients, c.LogLevel, logFile, statsAddr,
	)
}
