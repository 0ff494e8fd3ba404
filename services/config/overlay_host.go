//go:build !rp2040 && !rp2350 && !stm32

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"timerbank-go/errcode"
)

// LoadOverlay reads a YAML document for WithOverlay.
func LoadOverlay(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOverlay(raw)
}

func ParseOverlay(raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, errcode.Wrap(errcode.InvalidPayload, "config", "overlay is not a YAML mapping", err)
	}
	return m, nil
}
