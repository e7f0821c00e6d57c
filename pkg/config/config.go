// Package config loads the run settings and the parameter sweep from YAML.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/spsim/pkg/study"
)

// Config is the full input set of one run.
type Config struct {
	Workers         int           `yaml:"workers"`
	Nice            int           `yaml:"nice"`
	Out             string        `yaml:"out"`
	BER             string        `yaml:"ber"`
	MCSTable        string        `yaml:"mcs_table,omitempty"`
	StoreRaw        bool          `yaml:"store_raw"`
	Timeout         time.Duration `yaml:"timeout"`
	WorkerTimeout   time.Duration `yaml:"worker_timeout"`
	CheckpointEvery int           `yaml:"checkpoint_every"`
	XLSX            bool          `yaml:"xlsx"`
	SQLite          bool          `yaml:"sqlite"`
	Sweep           Sweep         `yaml:"sweep"`
}

// Default returns the settings used when a key is absent.
func Default() *Config {
	return &Config{
		Workers:         8,
		Nice:            10,
		Out:             "log",
		WorkerTimeout:   time.Hour,
		CheckpointEvery: 100_000,
	}
}

// Load reads path on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a YAML document on top of Default.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate checks the settings before anything touches the disk.
func (c *Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, c.Workers)
	case c.Nice < -20 || c.Nice > 19:
		return fmt.Errorf("%w: nice must be in [-20, 19], got %d", ErrInvalid, c.Nice)
	case c.Out == "":
		return fmt.Errorf("%w: out is empty", ErrInvalid)
	case c.BER == "":
		return fmt.Errorf("%w: ber dataset not set", ErrInvalid)
	case c.Timeout < 0 || c.WorkerTimeout < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalid)
	case c.CheckpointEvery < 0:
		return fmt.Errorf("%w: negative checkpoint_every", ErrInvalid)
	}
	if err := c.Sweep.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Param is one swept key and its values, in file order.
type Param struct {
	Key    string
	Values []*yaml.Node
}

// Sweep is an ordered list of parameters. The Cartesian product varies the
// last key fastest.
type Sweep []Param

// aliases accepts the key spellings of older sweep files.
var aliases = map[string]string{
	"Eb_N0":      "eb_n0",
	"enalbe_sls": "enable_sls",
}

// UnmarshalYAML keeps the mapping order. A scalar value is a one-element
// list.
func (s *Sweep) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: sweep must be a mapping (line %d)", ErrInvalid, n.Line)
	}
	out := make(Sweep, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		if a, ok := aliases[key]; ok {
			key = a
		}
		p := Param{Key: key}
		switch val.Kind {
		case yaml.SequenceNode:
			p.Values = val.Content
		case yaml.ScalarNode:
			p.Values = []*yaml.Node{val}
		default:
			return fmt.Errorf("%w: %s must be a scalar or a list (line %d)", ErrInvalid, key, val.Line)
		}
		out = append(out, p)
	}
	*s = out
	return nil
}

// MarshalYAML writes the sweep back as an ordered mapping of lists.
func (s Sweep) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range s {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle, Content: p.Values}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: p.Key}, seq)
	}
	return n, nil
}

// Validate checks every key names a combination field and has values.
func (s Sweep) Validate() error {
	if len(s) == 0 {
		return ErrEmptySweep
	}
	seen := map[string]bool{}
	for _, p := range s {
		if !slices.Contains(study.Columns, p.Key) {
			return fmt.Errorf("%w: %s", ErrUnknownParam, p.Key)
		}
		if seen[p.Key] {
			return fmt.Errorf("%w: %s given twice", ErrInvalid, p.Key)
		}
		seen[p.Key] = true
		if len(p.Values) == 0 {
			return fmt.Errorf("%w: %s has no values", ErrEmptySweep, p.Key)
		}
	}
	return nil
}

// Size is the number of combinations.
func (s Sweep) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, p := range s {
		n *= len(p.Values)
	}
	return n
}

// Keys returns the swept keys in order.
func (s Sweep) Keys() []string {
	keys := make([]string, len(s))
	for i, p := range s {
		keys[i] = p.Key
	}
	return keys
}
