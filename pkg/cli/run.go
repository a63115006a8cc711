package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/beam-cloud/searchmigrate/pkg/common"
	"github.com/beam-cloud/searchmigrate/pkg/migrate"
	"github.com/spf13/cobra"
)

var (
	runDeleteOld bool
	runIndex     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Migrate all categories into a new index version and swap the alias",
	Example: `  searchmigrate run
  searchmigrate run --delete-old
  searchmigrate run --index website --config ./prod.yaml`,
	Args: cobra.NoArgs,
	RunE: runMigration,
}

func init() {
	runCmd.Flags().BoolVar(&runDeleteOld, "delete-old", false, "Delete the previous index version after cutover")
	runCmd.Flags().StringVar(&runIndex, "index", "", "Alias to migrate (defaults to search.index)")
}

func runMigration(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	deleteOld := a.config.Migration.DeleteOld
	if cmd.Flags().Changed("delete-old") {
		deleteOld = runDeleteOld
	}

	if !IsJSONOutput() {
		a.events.On(common.EventMigrationStarted, func(e common.Event) {
			PrintInfof("building %s", CodeStyle.Render(fmt.Sprint(e.Data["index"])))
		})
		a.events.On(common.EventAliasCutover, func(e common.Event) {
			PrintInfof("alias swapped to %s", CodeStyle.Render(fmt.Sprint(e.Data["to"])))
		})
	}

	result, err := a.orchestrator().Run(ctx, migrate.RunOptions{
		DeleteOld: deleteOld,
		IndexName: a.alias(runIndex),
	})
	if err != nil {
		return err
	}

	if PrintJSON(result) {
		return nil
	}

	PrintHeader(fmt.Sprintf("Migrated %s", result.Alias))
	table := NewTable("CATEGORY", "MAX ID", "PAGES", "EXPORTED", "INDEXED", "DURATION")
	for _, c := range result.Categories {
		table.AddRow(
			c.Name,
			fmt.Sprintf("%d", c.MaxID),
			fmt.Sprintf("%d", c.Pages),
			fmt.Sprintf("%d", c.Exported),
			fmt.Sprintf("%d", c.Indexed),
			FormatDuration(c.Duration),
		)
	}
	table.Print()
	PrintNewline()

	PrintSuccessf("%s now points to %s", result.Alias, result.NewIndex)
	switch {
	case result.Retired:
		PrintInfof("deleted %s", result.PriorIndex)
	case result.PriorIndex != "":
		PrintInfof("%s retained; remove it with 'searchmigrate retire %s'", result.PriorIndex, result.PriorIndex)
	}
	return nil
}
