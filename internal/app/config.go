package app

import (
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/config"
)

// LoadConfig loads application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}
