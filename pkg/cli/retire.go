package cli

import (
	"github.com/spf13/cobra"
)

var retireCmd = &cobra.Command{
	Use:   "retire INDEX",
	Short: "Delete a superseded index version that no alias points to",
	Example: `  searchmigrate retire website_v2`,
	Args: cobra.ExactArgs(1),
	RunE: retireIndex,
}

func retireIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	index := args[0]
	if err := a.versions.Retire(ctx, index); err != nil {
		return err
	}

	if PrintJSON(map[string]any{"index": index, "retired": true}) {
		return nil
	}
	PrintSuccessf("retired %s", index)
	return nil
}
