package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/ecomdw/internal/db"
	"github.com/pgEdge/ecomdw/internal/warehouse"
)

var keepMetadata bool

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Drop and recreate the warehouse schema",
	Long: `Provision the warehouse in the target database: any pre-existing
warehouse tables are dropped in dependency order (facts before dimensions)
and recreated empty with all keys and constraints.

The command is idempotent; re-running it against an already-provisioned
database yields an identical empty schema. Provisioning is destructive and
must not run concurrently with loads or reports.

Example:
  ecomdw provision --connection "postgres://..."`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().BoolVar(&keepMetadata, "keep-metadata", false,
		"preserve extra metadata keys (such as loaded_at) across re-provisioning")
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List warehouse tables in creation order",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Warehouse tables (creation order):")
		cmd.Println()
		for _, name := range warehouse.TableNames {
			cmd.Printf("  %s\n", name)
		}
	},
}

func runProvision(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// The loaded data is gone after a re-provision, so stale metadata keys
	// go with it unless the operator asks otherwise.
	if !keepMetadata {
		if err := db.DropMetadata(ctx, pool); err != nil {
			return fmt.Errorf("failed to reset metadata: %w", err)
		}
	}

	if err := warehouse.Provision(ctx, pool); err != nil {
		return fmt.Errorf("failed to provision warehouse: %w", err)
	}

	return nil
}
