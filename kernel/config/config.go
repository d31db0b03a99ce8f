// Package config collects the named constants spec section 4 leaves as
// per-subsystem literals into one validated, flag-bindable structure.
package config

import "fmt"

// Config holds every tunable named by spec section 4. Zero-value Config is
// not valid; use Default and then Validate after any CLI flags have been
// applied on top of it.
type Config struct {
	// PageSize is the fixed unit of physical memory (spec section 3).
	PageSize uint32

	// MaxOrder bounds the buddy allocator's free-list index (spec 4.2).
	MaxOrder uint8

	// TimeQuantum is the round-robin scheduler's default fixed quantum;
	// Validate rejects a value outside [MinTimeQuantum, MaxTimeQuantum]
	// (spec 4.3).
	TimeQuantum    uint32
	MinTimeQuantum uint32
	MaxTimeQuantum uint32

	// DefaultPriority, MaxPriority, AgingInterval and AgingBoost
	// parameterize the priority scheduler (spec 4.4).
	DefaultPriority uint8
	MaxPriority     uint8
	AgingInterval   uint32
	AgingBoost      uint8

	// MaxChannels and MaxQueueDepth size the message-queue transport's
	// channel table and pool (spec 4.5).
	MaxChannels   int
	MaxQueueDepth int

	// SharedRegionSize and MaxMessageSize size the shared-memory
	// transport's regions and envelopes (spec 4.6).
	SharedRegionSize uint32
	MaxMessageSize   uint32
	MaxParticipants  int
}

// Default returns the constants spec.md names explicitly.
func Default() Config {
	return Config{
		PageSize:         4096,
		MaxOrder:         20,
		TimeQuantum:      20,
		MinTimeQuantum:   1,
		MaxTimeQuantum:   1000,
		DefaultPriority:  15,
		MaxPriority:      31,
		AgingInterval:    100,
		AgingBoost:       1,
		MaxChannels:      32,
		MaxQueueDepth:    16,
		SharedRegionSize: 4096,
		MaxMessageSize:   1024,
		MaxParticipants:  8,
	}
}

// Validate rejects configurations that would violate a documented
// invariant before any subsystem is initialized with them.
func (c Config) Validate() error {
	if c.PageSize == 0 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("config: page size must be a power of two, got %d", c.PageSize)
	}
	if c.MaxOrder == 0 {
		return fmt.Errorf("config: max order must be positive")
	}
	if c.MinTimeQuantum == 0 || c.MinTimeQuantum > c.MaxTimeQuantum {
		return fmt.Errorf("config: invalid time quantum bounds [%d, %d]", c.MinTimeQuantum, c.MaxTimeQuantum)
	}
	if c.TimeQuantum < c.MinTimeQuantum || c.TimeQuantum > c.MaxTimeQuantum {
		return fmt.Errorf("config: time quantum %d outside [%d, %d]", c.TimeQuantum, c.MinTimeQuantum, c.MaxTimeQuantum)
	}
	if c.DefaultPriority > c.MaxPriority {
		return fmt.Errorf("config: default priority %d exceeds max priority %d", c.DefaultPriority, c.MaxPriority)
	}
	if c.AgingInterval == 0 {
		return fmt.Errorf("config: aging interval must be positive")
	}
	if c.MaxChannels <= 0 || c.MaxQueueDepth <= 0 {
		return fmt.Errorf("config: channel table and queue depth must be positive")
	}
	if c.SharedRegionSize == 0 || c.MaxMessageSize == 0 || c.MaxMessageSize > c.SharedRegionSize {
		return fmt.Errorf("config: shared region size %d must be >= max message size %d", c.SharedRegionSize, c.MaxMessageSize)
	}
	if c.MaxParticipants <= 0 {
		return fmt.Errorf("config: max participants must be positive")
	}
	return nil
}

// TimeSlice computes the priority scheduler's dynamic time slice for a
// given priority level (spec 4.4: "10 + 2*priority").
func (c Config) TimeSlice(priority uint8) uint32 {
	return 10 + 2*uint32(priority)
}
