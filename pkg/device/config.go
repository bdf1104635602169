// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Dana Sorel, Irradiant

package device

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Irradiant/lampion/pkg/filament"
)

// SerialConfig selects the byte pipe a USB-gadget or tty host talks through.
type SerialConfig struct {
	Port string `yaml:"port"` // e.g. /dev/ttyGS0
	Baud int    `yaml:"baud"` // ignored by USB CDC, honored by real ttys
}

// SPIConfig tunes the strip output peripheral.
type SPIConfig struct {
	Port       string `yaml:"port,omitempty"` // registry name, empty selects the first port
	FreqKHz    int    `yaml:"freq_khz"`       // e.g. 6400
	LatchBytes int    `yaml:"latch_bytes"`    // zero bytes appended per frame
}

// Profile is the on-disk daemon configuration.
type Profile struct {
	LEDCount int    `yaml:"led_count"`
	Output   string `yaml:"output"`           // "spi" | "preview"
	PollUs   int    `yaml:"poll_us"`          // controller loop cadence
	Listen   string `yaml:"listen,omitempty"` // WebSocket listen address, empty disables

	Serial SerialConfig `yaml:"serial,omitempty"`
	SPI    SPIConfig    `yaml:"spi,omitempty"`
}

// DefaultProfile returns the settings the daemon runs with when no file is
// given.
func DefaultProfile() *Profile {
	return &Profile{
		LEDCount: filament.DefaultLEDCount,
		Output:   "spi",
		PollUs:   1000,
		Serial:   SerialConfig{Baud: 115200},
		SPI:      SPIConfig{FreqKHz: 6400, LatchBytes: 64},
	}
}

// LoadProfile reads path and fills unset fields from the defaults.
func LoadProfile(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := DefaultProfile()
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, err
	}
	if p.LEDCount < 1 {
		p.LEDCount = filament.DefaultLEDCount
	}
	if p.PollUs < 1 {
		p.PollUs = 1000
	}
	return p, nil
}

// SaveProfile writes p to path.
func SaveProfile(path string, p *Profile) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
