package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// Cooldown is how long the scan lock stays set after a terminal outcome
	Cooldown time.Duration
	// ScanPolicy selects the ISBN validation policy ("strict" or "loose")
	ScanPolicy string
	// ScanCategory is the category applied to scanned books, empty for none
	ScanCategory string
	// GoogleBooksAPIKey is the optional API key for the Google Books API
	GoogleBooksAPIKey string
)

// InitConfig initializes the global configuration
func InitConfig() {
	viper.SetDefault("scan.cooldown", "3s")
	viper.SetDefault("scan.policy", "strict")
	viper.SetDefault("scan.category", "")

	viper.SetDefault("providers.openbd.baseurl", "https://api.openbd.jp")
	viper.SetDefault("providers.openbd.ratelimit", 5)
	viper.SetDefault("providers.googlebooks.baseurl", "https://www.googleapis.com/books/v1")
	viper.SetDefault("providers.googlebooks.ratelimit", 1)

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dbfile", "./shelfscan.db")
	viper.SetDefault("store.table", "books")

	viper.SetDefault("covers.enabled", false)
	viper.SetDefault("covers.dir", "./covers/")
	viper.SetDefault("covers.maxwidth", 500)

	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h")

	Cooldown = viper.GetDuration("scan.cooldown")
	if Cooldown <= 0 {
		Cooldown = 3 * time.Second
	}
	ScanPolicy = viper.GetString("scan.policy")
	ScanCategory = viper.GetString("scan.category")
	GoogleBooksAPIKey = viper.GetString("GoogleBooksAPIKey")
}

// SetCooldown sets the scan lock cool-down duration
func SetCooldown(d time.Duration) {
	Cooldown = d
}

// SetScanPolicy sets the ISBN validation policy
func SetScanPolicy(policy string) {
	ScanPolicy = policy
}

// SetScanCategory sets the category applied to scanned books
func SetScanCategory(category string) {
	ScanCategory = category
}
