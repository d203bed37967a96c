package testutil

import (
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/shelfscan/internal/config"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	Cooldown          time.Duration
	ScanPolicy        string
	ScanCategory      string
	GoogleBooksAPIKey string
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		Cooldown:          config.Cooldown,
		ScanPolicy:        config.ScanPolicy,
		ScanCategory:      config.ScanCategory,
		GoogleBooksAPIKey: config.GoogleBooksAPIKey,
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.Cooldown = state.Cooldown
	config.ScanPolicy = state.ScanPolicy
	config.ScanCategory = state.ScanCategory
	config.GoogleBooksAPIKey = state.GoogleBooksAPIKey
}

// ResetConfig saves the current config state and schedules restoration
// when the test completes. It also resets viper.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetTestConfig sets up a test configuration with common defaults and
// restores the previous state when the test completes.
func SetTestConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	config.Cooldown = 3 * time.Second
	config.ScanPolicy = "strict"
	config.ScanCategory = ""
	config.GoogleBooksAPIKey = "test-google-books-key"

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}
