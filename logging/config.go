package logging

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Sink names understood by the server wiring.
const (
	SinkConsole = "console"
	SinkJSON    = "json"
)

var ErrInvalidConfig = errors.New("logging: invalid config")

// Config controls the router. Fields are attached to every event that does
// not already carry a value under the same key.
type Config struct {
	EnabledSinks     []string
	BufferSize       int
	MinimumSeverity  Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

// Validate rejects unknown sink names and a json sink without a file.
func (c Config) Validate() error {
	for _, name := range c.EnabledSinks {
		if name != SinkConsole && name != SinkJSON {
			return fmt.Errorf("%w: unknown sink %q", ErrInvalidConfig, name)
		}
	}
	if c.HasSink(SinkJSON) && c.JSON.FilePath == "" {
		return fmt.Errorf("%w: json sink enabled without a file path", ErrInvalidConfig)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("%w: negative buffer size", ErrInvalidConfig)
	}
	return nil
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	return maps.Clone(c.Fields)
}
