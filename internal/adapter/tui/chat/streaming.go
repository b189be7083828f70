package chat

import (
	"fmt"
	"strings"
	"time"
)

// StreamSpeed controls how fast assistant text is revealed.
type StreamSpeed int

const (
	StreamNormal  StreamSpeed = iota // 8 runes per tick (default)
	StreamFast                       // 32 runes per tick
	StreamInstant                    // whole reply at once
)

var speedNames = [...]string{
	StreamNormal:  "normal",
	StreamFast:    "fast",
	StreamInstant: "instant",
}

func (s StreamSpeed) String() string {
	if s < 0 || int(s) >= len(speedNames) {
		return "unknown"
	}
	return speedNames[s]
}

// ParseStreamSpeed accepts the names printed by String.
func ParseStreamSpeed(name string) (StreamSpeed, error) {
	for i, n := range speedNames {
		if strings.EqualFold(name, n) {
			return StreamSpeed(i), nil
		}
	}
	return StreamNormal, fmt.Errorf("unknown stream speed %q (want normal, fast or instant)", name)
}

// Next cycles normal, fast, instant and back.
func (s StreamSpeed) Next() StreamSpeed {
	return (s + 1) % StreamSpeed(len(speedNames))
}

// StreamConfig holds the reveal parameters for one speed.
type StreamConfig struct {
	Speed     StreamSpeed
	ChunkSize int           // runes per tick, 0 = instant
	TickRate  time.Duration // delay between ticks
}

// StreamConfigForSpeed returns the preset for s.
func StreamConfigForSpeed(s StreamSpeed) StreamConfig {
	switch s {
	case StreamInstant:
		return StreamConfig{Speed: StreamInstant}
	case StreamFast:
		return StreamConfig{Speed: StreamFast, ChunkSize: 32, TickRate: 16 * time.Millisecond}
	default:
		return StreamConfig{Speed: StreamNormal, ChunkSize: 8, TickRate: 16 * time.Millisecond}
	}
}
