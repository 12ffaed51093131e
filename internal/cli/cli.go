//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for ecomdw.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/ecomdw/internal/config"
	"github.com/pgEdge/ecomdw/internal/logging"
	"github.com/pgEdge/ecomdw/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	logLevel   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "ecomdw",
		Short: "E-commerce star-schema warehouse for transaction analytics",
		Long: `ecomdw provisions a PostgreSQL star-schema warehouse for e-commerce
transaction analytics, loads it with source data, and runs the derived
reports (monthly revenue, top categories by sales, customer retention).

The warehouse models orders, order items, payments and reviews as fact
tables against date, customer, seller, product, category, payment-type
and review-score dimensions. All data is append-only; a full rebuild is
a re-run of 'ecomdw provision' followed by 'ecomdw load'.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./ecomdw.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(tablesCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
