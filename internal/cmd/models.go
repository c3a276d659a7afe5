package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/conclave/internal/config"
	"github.com/Iron-Ham/conclave/internal/model"
	"github.com/Iron-Ham/conclave/internal/util"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List OpenRouter models",
	Long: `List models from the OpenRouter catalog.

With --free only zero-priced models are shown. With --chain the ordered
candidates the openrouter:auto-free alias would try are printed instead,
after free_rank, selected_free and enabled are applied.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

var (
	modelsFree  bool
	modelsChain bool
)

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsFree, "free", false, "Only list free models")
	modelsCmd.Flags().BoolVar(&modelsChain, "chain", false, "Print the auto-free candidate chain")
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	catalog := cfg.NewCatalog()
	out := cmd.OutOrStdout()

	if modelsChain {
		chain, err := cfg.NewOpenRouter(catalog).Chain(cmd.Context())
		if err != nil {
			return err
		}
		if len(chain) == 0 {
			_, _ = fmt.Fprintln(out, "No auto-free candidates.")
			return nil
		}
		for i, id := range chain {
			_, _ = fmt.Fprintf(out, "%2d. %s\n", i+1, id)
		}
		return nil
	}

	var models []model.CatalogModel
	if modelsFree {
		models, err = catalog.FreeModels(cmd.Context())
	} else {
		models, err = catalog.Models(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	printModels(out, models)
	return nil
}

// maxModelName caps the name column.
const maxModelName = 40

func printModels(w io.Writer, models []model.CatalogModel) {
	if len(models) == 0 {
		_, _ = fmt.Fprintln(w, "No models found.")
		return
	}
	idWidth := 0
	for _, m := range models {
		idWidth = max(idWidth, len(m.ID))
	}
	for _, m := range models {
		price := ""
		if m.Free {
			price = "free"
		}
		_, _ = fmt.Fprintf(w, "%-*s  %-*s  %8d  %s\n",
			idWidth, m.ID, maxModelName, util.TruncateString(m.Name, maxModelName), m.ContextLength, price)
	}
}
