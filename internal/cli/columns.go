package cli

import (
	"github.com/spf13/cobra"
	"github.com/vvka-141/koboload/internal/schema"
	"github.com/vvka-141/koboload/internal/ui"
	"github.com/vvka-141/koboload/pkg/koboload"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Show how export headers map to table columns",
	Long: `Columns prints the fixed layout of the destination table: each column,
the export header it is read from, and its PostgreSQL type.

Headers are matched exactly. A header absent from the export loads as NULL.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		target := schema.QualifiedName(koboload.TargetNamespace, koboload.TargetTable)
		ui.RenderColumns(cmd.OutOrStdout(), target, schema.Columns())
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}
