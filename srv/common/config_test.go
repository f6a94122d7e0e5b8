package common

import (
	"strings"
	"testing"
	"time"
)

func validConfig() ServerConfig {
	return ServerConfig{
		Transport: ServerTransportConfig{
			Name:     "tcp",
			Endpoint: "127.0.0.1:8080",
		},
		Mode:          ModePool,
		Workers:       4,
		FactorialStep: 100 * time.Millisecond,
		LogLevel:      "info",
	}
}

func TestParseExecutorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ExecutorMode
		wantErr bool
	}{
		{"threaded", ModeThreaded, false},
		{"loop", ModeLoop, false},
		{"POOL", ModePool, false},
		{" pool ", ModePool, false},
		{"fibers", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExecutorMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExecutorMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExecutorMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *ServerConfig)
		wantErr bool
	}{
		{"valid", func(c *ServerConfig) {}, false},
		{"no endpoint", func(c *ServerConfig) { c.Transport.Endpoint = "" }, true},
		{"bad transport", func(c *ServerConfig) { c.Transport.Name = "udp" }, true},
		{"bad mode", func(c *ServerConfig) { c.Mode = "fibers" }, true},
		{"pool without workers", func(c *ServerConfig) { c.Workers = 0 }, true},
		{"loop ignores workers", func(c *ServerConfig) { c.Mode = ModeLoop; c.Workers = 0 }, false},
		{"negative step", func(c *ServerConfig) { c.FactorialStep = -time.Second }, true},
		{"negative timeout", func(c *ServerConfig) { c.TimeoutSecond = -1 }, true},
		{"bad log level", func(c *ServerConfig) { c.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveWorkers(t *testing.T) {
	c := validConfig()
	if got := c.EffectiveWorkers(); got != 4 {
		t.Errorf("pool: EffectiveWorkers() = %d, want 4", got)
	}
	c.Mode = ModeLoop
	if got := c.EffectiveWorkers(); got != 1 {
		t.Errorf("loop: EffectiveWorkers() = %d, want 1", got)
	}
	c.Mode = ModeThreaded
	if got := c.EffectiveWorkers(); got != 0 {
		t.Errorf("threaded: EffectiveWorkers() = %d, want 0", got)
	}
}

func TestConfigString(t *testing.T) {
	c := validConfig()
	s := c.String()
	for _, want := range []string{"TRANSPORT", "EXECUTOR", "127.0.0.1:8080", "pool", "Workers", "disabled"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() misses %q:\n%s", want, s)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", "DEBUG", ""} {
		if _, err := ParseLogLevel(lvl); err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", lvl, err)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("ParseLogLevel(verbose) should fail")
	}
}
