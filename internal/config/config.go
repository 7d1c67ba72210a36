// Package config loads application settings from a .env file and environment
// variables. Environment variables always take precedence over .env values.
package config

import (
	"fmt"
	"log"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server
	Port         string
	SecureCookie bool
	Debug        bool

	// Storage
	DBPath string

	// View collaborator
	TemplateDir string
	StaticDir   string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "expenses.db")
	v.SetDefault("TEMPLATE_DIR", "web/templates")
	v.SetDefault("STATIC_DIR", "web/static")
	v.SetDefault("SECURE_COOKIE", false)
	v.SetDefault("DEBUG", false)

	return &Config{
		Port:         v.GetString("PORT"),
		SecureCookie: v.GetBool("SECURE_COOKIE"),
		Debug:        v.GetBool("DEBUG"),
		DBPath:       v.GetString("DB_PATH"),
		TemplateDir:  v.GetString("TEMPLATE_DIR"),
		StaticDir:    v.GetString("STATIC_DIR"),
	}
}

// Validate returns an error describing every invalid setting, or nil.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: must be a number", c.Port)
	} else if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.TemplateDir == "" {
		return fmt.Errorf("template directory cannot be empty")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}
