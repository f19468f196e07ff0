package tripinfo

import (
	"fmt"

	"github.com/kilianp07/stationfinder/core/factory"
)

// Config selects the trip-info backend.
type Config struct {
	Store factory.ModuleConfig `json:"store"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
}

// Validate checks that the backend is known.
func (c Config) Validate() error {
	for _, n := range storeRegistry.Names() {
		if n == c.Store.Type {
			return nil
		}
	}
	return fmt.Errorf("unknown tripinfo store %q", c.Store.Type)
}

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// NewStore creates the configured Store.
func NewStore(cfg Config) (Store, error) {
	cfg.SetDefaults()
	return storeRegistry.Create(cfg.Store)
}

type fileConf struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

func decodeFileConf(conf map[string]any) (fileConf, error) {
	var c fileConf
	if err := factory.Decode(conf, &c); err != nil {
		return c, err
	}
	if c.Path == "" {
		return c, fmt.Errorf("tripinfo: path is required")
	}
	return c, nil
}

func init() {
	_ = RegisterStore("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})
	_ = RegisterStore("jsonl", func(conf map[string]any) (Store, error) {
		c, err := decodeFileConf(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = RegisterStore("rotating", func(conf map[string]any) (Store, error) {
		c, err := decodeFileConf(conf)
		if err != nil {
			return nil, err
		}
		if c.MaxSizeMB == 0 {
			c.MaxSizeMB = 10
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = RegisterStore("sqlite", func(conf map[string]any) (Store, error) {
		c, err := decodeFileConf(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}
