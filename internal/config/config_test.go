package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestInitConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	InitConfig()

	if Cooldown != 3*time.Second {
		t.Errorf("expected default cooldown of 3s, got %v", Cooldown)
	}
	if ScanPolicy != "strict" {
		t.Errorf("expected default policy strict, got %q", ScanPolicy)
	}
	if got := viper.GetString("store.driver"); got != "sqlite" {
		t.Errorf("expected default store driver sqlite, got %q", got)
	}
}

func TestInitConfigReadsValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("scan.cooldown", "1500ms")
	viper.Set("scan.policy", "loose")
	viper.Set("scan.category", "novels")

	InitConfig()

	if Cooldown != 1500*time.Millisecond {
		t.Errorf("expected cooldown 1.5s, got %v", Cooldown)
	}
	if ScanPolicy != "loose" {
		t.Errorf("expected policy loose, got %q", ScanPolicy)
	}
	if ScanCategory != "novels" {
		t.Errorf("expected category novels, got %q", ScanCategory)
	}
}

func TestSettersOverrideGlobals(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	InitConfig()

	SetCooldown(10 * time.Second)
	SetScanPolicy("loose")
	SetScanCategory("manga")

	if Cooldown != 10*time.Second || ScanPolicy != "loose" || ScanCategory != "manga" {
		t.Errorf("setters did not update globals: %v %q %q", Cooldown, ScanPolicy, ScanCategory)
	}
}
