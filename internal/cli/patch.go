package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/maintenance"
)

// Patch command flags
var (
	patchDB    string
	patchID    string
	patchTable string
	patchJSON  bool
)

// patchCmd represents the patch-metadata command
var patchCmd = &cobra.Command{
	Use:   "patch-metadata",
	Short: "Mark one request row as federated",
	Long: `Set requestType to "federated" in the JSON metadata of a single row.

The database must already exist; it is never created. The row's metadata
is printed before and after the change. Other metadata keys are kept. A
row that does not exist is reported and nothing is changed.

Examples:
  respawn patch-metadata --db app.db --id 42
  respawn patch-metadata --db app.db --id 42 --table archived_requests`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

func init() {
	rootCmd.AddCommand(patchCmd)

	patchCmd.Flags().StringVar(&patchDB, "db", "", "Path to the SQLite database")
	patchCmd.Flags().StringVar(&patchID, "id", "", "ID of the row to patch")
	patchCmd.Flags().StringVar(&patchTable, "table", constants.DefaultMetadataTable, "Table holding the metadata column")
	patchCmd.Flags().BoolVar(&patchJSON, "json", false, "Print the result as JSON")
	_ = patchCmd.MarkFlagRequired("db")
	_ = patchCmd.MarkFlagRequired("id")
}

func runPatch(cmd *cobra.Command, args []string) error {
	return patchRow(cmd.Context(), patchDB, patchTable, patchID, patchJSON, cmd.OutOrStdout())
}

// patchRow opens the database at path and patches one row of table
func patchRow(ctx context.Context, path, table, id string, jsonOutput bool, out io.Writer) error {
	if id == "" {
		return fmt.Errorf("--id cannot be empty")
	}

	store, err := maintenance.Open(path, table)
	if err != nil {
		return err
	}
	defer store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	progress := out
	if jsonOutput {
		progress = io.Discard
	}

	result, err := maintenance.Patch(ctx, store, id, progress)
	if err != nil {
		return fmt.Errorf("patching %s %s: %w", store.Table(), id, err)
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return nil
}
