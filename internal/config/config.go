//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for ecomdw.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DateFormat is the layout accepted for date values in config and flags.
const DateFormat = "2006-01-02"

// Config holds all configuration for ecomdw.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Report holds configuration for the report subcommand.
	Report ReportConfig `mapstructure:"report"`
}

// LoadConfig holds configuration for synthetic source data loading.
type LoadConfig struct {
	// Customers is the number of source customers to generate.
	Customers int `mapstructure:"customers"`

	// Sellers is the number of source sellers to generate.
	Sellers int `mapstructure:"sellers"`

	// Products is the number of source products to generate.
	Products int `mapstructure:"products"`

	// Orders is the number of source orders to generate.
	Orders int `mapstructure:"orders"`

	// Seed makes generation reproducible; 0 seeds from the clock.
	Seed uint64 `mapstructure:"seed"`

	// StartDate is the first order date (YYYY-MM-DD).
	StartDate string `mapstructure:"start_date"`

	// EndDate is the last order date (YYYY-MM-DD).
	EndDate string `mapstructure:"end_date"`
}

// ReportConfig holds configuration for the analytical reports.
type ReportConfig struct {
	// TopN is the number of categories returned by the top-categories report.
	TopN int `mapstructure:"top_n"`

	// From optionally restricts reports to orders placed on or after this date.
	From string `mapstructure:"from"`

	// To optionally restricts reports to orders placed on or before this date.
	To string `mapstructure:"to"`
}

// DefaultConfig returns a Config with default values.
// Load defaults mirror the reference source extract sizes.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Load: LoadConfig{
			Customers: 200,
			Sellers:   50,
			Products:  100,
			Orders:    1000,
			StartDate: "2023-01-01",
			EndDate:   "2023-12-31",
		},
		Report: ReportConfig{
			TopN: 10,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./ecomdw.yaml
// 3. ~/.config/ecomdw/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("ecomdw")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "ecomdw"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Load.Customers < 1 {
		return fmt.Errorf("customers must be at least 1")
	}
	if c.Load.Sellers < 1 {
		return fmt.Errorf("sellers must be at least 1")
	}
	if c.Load.Products < 1 {
		return fmt.Errorf("products must be at least 1")
	}
	if c.Load.Orders < 1 {
		return fmt.Errorf("orders must be at least 1")
	}
	start, err := time.Parse(DateFormat, c.Load.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date %q: %w", c.Load.StartDate, err)
	}
	end, err := time.Parse(DateFormat, c.Load.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date %q: %w", c.Load.EndDate, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end_date must not precede start_date")
	}
	return nil
}

// ValidateReport checks configuration required for the report command.
func (c *Config) ValidateReport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Report.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	var from, to time.Time
	if c.Report.From != "" {
		var err error
		if from, err = time.Parse(DateFormat, c.Report.From); err != nil {
			return fmt.Errorf("invalid from date %q: %w", c.Report.From, err)
		}
	}
	if c.Report.To != "" {
		var err error
		if to, err = time.Parse(DateFormat, c.Report.To); err != nil {
			return fmt.Errorf("invalid to date %q: %w", c.Report.To, err)
		}
	}
	if c.Report.From != "" && c.Report.To != "" && to.Before(from) {
		return fmt.Errorf("to date must not precede from date")
	}
	return nil
}
