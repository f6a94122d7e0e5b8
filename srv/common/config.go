package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Executor modes
// --------------------------------------------------------------------------

// ExecutorMode selects the concurrency substrate of the server
type ExecutorMode string

const (
	// ModeThreaded runs one goroutine per connection with blocking I/O
	ModeThreaded ExecutorMode = "threaded"
	// ModeLoop runs every callback on a single cooperative run-loop goroutine
	ModeLoop ExecutorMode = "loop"
	// ModePool runs a shared run-loop on a pool of worker goroutines
	ModePool ExecutorMode = "pool"
)

// ParseExecutorMode converts a string to an ExecutorMode
func ParseExecutorMode(s string) (ExecutorMode, error) {
	switch m := ExecutorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeThreaded, ModeLoop, ModePool:
		return m, nil
	default:
		return "", fmt.Errorf("invalid executor mode %q (expected one of: threaded, loop, pool)", s)
	}
}

// --------------------------------------------------------------------------
// Socket configuration
// --------------------------------------------------------------------------

// SocketConf holds socket options shared by all stream transports
type SocketConf struct {
	WriteBufferSize int // bytes, 0 keeps the OS default
	ReadBufferSize  int // bytes, 0 keeps the OS default
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 disables keep-alive probes
	TCPLingerSec    int // < 0 keeps the OS default
}

// ServerTransportConfig selects and configures the listening transport
type ServerTransportConfig struct {
	Name     string // "tcp" or "unix"
	Endpoint string // host:port for tcp, socket path for unix
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a line server
type ServerConfig struct {
	Transport ServerTransportConfig

	// Executor
	Mode          ExecutorMode
	Workers       int           // run-loop goroutines in pool mode
	FactorialStep time.Duration // simulated work per factorial multiplication

	// Per-operation read/write timeout, 0 disables deadlines
	TimeoutSecond int64

	// Observability
	AdminEndpoint       string // HTTP endpoint for /metrics, /log, /sessions; empty disables it
	StatsIntervalSecond int64  // period of the stats log reporter, 0 disables it
	LogLevel            string
}

// Validate checks the configuration for values the server cannot run with
func (c *ServerConfig) Validate() error {
	if c.Transport.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Transport.Name != "tcp" && c.Transport.Name != "unix" {
		return fmt.Errorf("invalid transport %q (expected one of: tcp, unix)", c.Transport.Name)
	}
	if _, err := ParseExecutorMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Mode == ModePool && c.Workers < 1 {
		return fmt.Errorf("pool mode needs at least one worker, got %d", c.Workers)
	}
	if c.FactorialStep < 0 {
		return fmt.Errorf("factorial step must not be negative")
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// EffectiveWorkers returns the number of run-loop goroutines of the mode
// (threaded mode has no run-loop)
func (c *ServerConfig) EffectiveWorkers() int {
	switch c.Mode {
	case ModeLoop:
		return 1
	case ModePool:
		return c.Workers
	default:
		return 0
	}
}

// Timeout returns the per-operation timeout as a duration
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Transport")
	addField("Transport", c.Transport.Name)
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.Transport.Name == "tcp" {
		addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
		addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	}

	addSection("Executor")
	addField("Mode", string(c.Mode))
	if c.Mode == ModePool {
		addField("Workers", strconv.Itoa(c.Workers))
	}
	addField("Factorial Step", c.FactorialStep.String())

	addSection("Observability")
	if c.AdminEndpoint != "" {
		addField("Admin Endpoint", c.AdminEndpoint)
	} else {
		addField("Admin Endpoint", "disabled")
	}
	addField("Stats Interval", fmt.Sprintf("%d sec", c.StatsIntervalSecond))
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the parameters of the line client
type ClientConfig struct {
	Transport     string // "tcp" or "unix"
	Endpoint      string
	TimeoutSecond int // per request, 0 waits forever
}

// Timeout returns the per-request timeout as a duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	return sb.String()
}
