package smelt

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// ============================================================================
// Configuration
// ============================================================================

const (
	// DefaultMaxNodes is the largest participant count a context accepts
	// unless configured otherwise.
	DefaultMaxNodes = 64

	// DefaultQueueSlots is the ring capacity of every tree edge.
	DefaultQueueSlots = 8

	// MinQueueSlots bounds how far a participant may run ahead of its
	// slowest neighbor: a writer can be at most QueueSlots rounds ahead of
	// the reader draining the same edge.
	MinQueueSlots = 3

	// DefaultRoundMax is the number of round counters of a cluster
	// barrier.
	DefaultRoundMax = 3

	// MinRoundMax: the sequentializer resets round r-1 while the fastest
	// participant may already be counting in r+1.
	MinRoundMax = 3
)

// Config is the data-driven description of a machine and how the
// collectives should run on it. The zero value is not valid; start from
// DefaultConfig or LoadConfig.
type Config struct {
	// Name registers the context under this name when a Registry is set.
	Name string `json:"name"`

	// MaxNodes is the largest participant count accepted by Create.
	MaxNodes int `json:"max_nodes"`

	// QueueSlots is the capacity of every ring. It is also the number of
	// rounds a participant may run ahead of a neighbor.
	QueueSlots int `json:"queue_slots"`

	// RoundMax is the number of round counters per cluster barrier.
	RoundMax int `json:"round_max"`

	// SpinBudget bounds every blocking poll loop. Zero spins until the
	// peer progresses; a positive value surfaces stalls as ErrSpinBudget.
	SpinBudget int `json:"spin_budget"`

	// SleepAfter lets a receiver sleep on a doorbell after this many empty
	// polls. Zero never sleeps. A parked receiver has no budget, so
	// SleepAfter and SpinBudget cannot both be set.
	SleepAfter int `json:"sleep_after"`

	// Cores maps participant id to the core Run pins it to. Empty leaves
	// scheduling to the OS.
	Cores []int `json:"cores"`

	// Model describes the tree. It is only consulted by Config.Topology.
	Model *ModelConfig `json:"model,omitempty"`

	Logger   *slog.Logger `json:"-"`
	Arch     Arch         `json:"-"`
	Registry *Registry    `json:"-"`
}

// ModelConfig is the serialized form of a topology. Exactly one of Matrix,
// Parents or Nodes is used, in that order of preference; Nodes alone
// generates a binary tree.
type ModelConfig struct {
	Name     string    `json:"name"`
	Nodes    int       `json:"nodes"`
	Parents  []int     `json:"parents"`
	Matrix   [][]int   `json:"matrix"`
	Clusters []Cluster `json:"clusters"`
}

// DefaultConfig returns the configuration used when no option is given.
func DefaultConfig() Config {
	return Config{
		MaxNodes:   DefaultMaxNodes,
		QueueSlots: DefaultQueueSlots,
		RoundMax:   DefaultRoundMax,
	}
}

// ParseConfig decodes a JSON configuration on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := sonnet.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("smelt: load config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the numeric limits.
func (c *Config) Validate() error {
	switch {
	case c.MaxNodes <= 0:
		return fmt.Errorf("%w: max_nodes %d", ErrInvalidConfig, c.MaxNodes)
	case c.QueueSlots < MinQueueSlots || c.QueueSlots > MaxQueueSlots:
		return fmt.Errorf("%w: queue_slots %d not in [%d, %d]",
			ErrInvalidCapacity, c.QueueSlots, MinQueueSlots, MaxQueueSlots)
	case c.RoundMax < MinRoundMax:
		return fmt.Errorf("%w: round_max %d < %d", ErrInvalidConfig, c.RoundMax, MinRoundMax)
	case c.SpinBudget < 0:
		return fmt.Errorf("%w: spin_budget %d", ErrInvalidConfig, c.SpinBudget)
	case c.SleepAfter < 0:
		return fmt.Errorf("%w: sleep_after %d", ErrInvalidConfig, c.SleepAfter)
	case c.SpinBudget > 0 && c.SleepAfter > 0:
		return fmt.Errorf("%w: spin_budget and sleep_after are exclusive", ErrInvalidConfig)
	}
	for i, core := range c.Cores {
		if core < 0 {
			return fmt.Errorf("%w: participant %d mapped to core %d", ErrInvalidConfig, i, core)
		}
	}
	return nil
}

// Topology builds the tree described by Model.
func (c *Config) Topology() (*Topology, error) {
	m := c.Model
	if m == nil {
		return nil, fmt.Errorf("%w: no model", ErrInvalidConfig)
	}
	name := m.Name
	if name == "" {
		name = c.Name
	}
	switch {
	case len(m.Matrix) > 0:
		t, err := FromModel(name, m.Matrix)
		if err != nil {
			return nil, err
		}
		if len(m.Clusters) > 0 {
			return NewTopology(name, t.parent, WithClusters(append(t.Clusters(), m.Clusters...)...))
		}
		return t, nil
	case len(m.Parents) > 0:
		return NewTopology(name, m.Parents, WithClusters(m.Clusters...))
	case m.Nodes > 0:
		t, err := BinaryTopology(m.Nodes)
		if err != nil {
			return nil, err
		}
		if len(m.Clusters) > 0 || name != "" {
			return NewTopology(name, t.parent, WithClusters(m.Clusters...))
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: model has neither matrix, parents nor nodes", ErrInvalidConfig)
	}
}

// WithName sets Config.Name.
func WithName(name string) func(*Config) {
	return func(c *Config) {
		c.Name = name
	}
}

// WithMaxNodes sets the largest accepted participant count.
func WithMaxNodes(n int) func(*Config) {
	return func(c *Config) {
		c.MaxNodes = n
	}
}

// WithQueueSlots sets the ring capacity of every edge.
func WithQueueSlots(n int) func(*Config) {
	return func(c *Config) {
		c.QueueSlots = n
	}
}

// WithRoundMax sets the number of cluster barrier round counters.
func WithRoundMax(n int) func(*Config) {
	return func(c *Config) {
		c.RoundMax = n
	}
}

// WithSpinBudget bounds every blocking poll loop to n polls.
func WithSpinBudget(n int) func(*Config) {
	return func(c *Config) {
		c.SpinBudget = n
	}
}

// WithSleepAfter enables doorbells: receivers sleep after n empty polls.
func WithSleepAfter(n int) func(*Config) {
	return func(c *Config) {
		c.SleepAfter = n
	}
}

// WithCores maps participants to cores for Run.
func WithCores(cores ...int) func(*Config) {
	return func(c *Config) {
		c.Cores = cores
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) func(*Config) {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithArch overrides the architecture primitives.
func WithArch(a Arch) func(*Config) {
	return func(c *Config) {
		c.Arch = a
	}
}

// WithRegistry registers the context under Config.Name in r.
func WithRegistry(r *Registry) func(*Config) {
	return func(c *Config) {
		c.Registry = r
	}
}
