package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz    int `yaml:"tick_rate_hz"`
	MaxRounds     int `yaml:"max_rounds"`
	MsgCooldownMs int `yaml:"msg_cooldown_ms"`

	// Outbound client queue default when HELLO doesn't ask for one.
	ClientQueue int `yaml:"client_queue"`

	// Item ids seeded into the ancient backpack at session start.
	StartingItems []string `yaml:"starting_items"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      5,
		MaxRounds:       10,
		MsgCooldownMs:   1000,
		ClientQueue:     8,
		StartingItems:   []string{"WHEAT", "WHEAT", "WHEAT", "STONE_TOOL"},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz must be positive")
	}
	if t.MaxRounds <= 0 {
		return t, fmt.Errorf("tuning.yaml: max_rounds must be positive")
	}
	return t, nil
}
