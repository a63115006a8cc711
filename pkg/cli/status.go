package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beam-cloud/searchmigrate/pkg/migrate"
	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusIndex string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the alias state, its bindings and the known index versions",
	Args:  cobra.NoArgs,
	RunE:  showStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusIndex, "index", "", "Alias to inspect (defaults to search.index)")
}

type statusOutput struct {
	*migrate.AliasObservation
	Conflict  string               `json:"conflict,omitempty"`
	Ledger    []types.IndexVersion `json:"ledger"`
	DocCounts map[string]int64     `json:"doc_counts,omitempty"`
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	alias := a.alias(statusIndex)
	out := statusOutput{}

	// A conflicting shape is still worth printing
	out.AliasObservation, err = a.versions.Observe(ctx, alias)
	if err != nil {
		if out.AliasObservation == nil || types.KindOf(err) != types.ErrorKindAliasStateConflict {
			return err
		}
		out.Conflict = err.Error()
	}

	out.Ledger, err = a.ledger.ListVersions(ctx, alias)
	if err != nil {
		return err
	}

	out.DocCounts = make(map[string]int64, len(out.Versions))
	for _, v := range out.Versions {
		physical := migrate.VersionName(alias, v)
		count, err := a.search.Count(ctx, physical)
		if err != nil {
			log.Warn().Err(err).Str("index", physical).Msg("failed to count documents")
			continue
		}
		out.DocCounts[physical] = count
	}

	if PrintJSON(out) {
		return nil
	}

	obs := out.AliasObservation
	PrintHeader(alias)
	PrintKeyValue("State", string(obs.State))
	if obs.Current != "" {
		PrintKeyValueStyled("Current", obs.Current, CodeStyle)
	}
	if len(obs.Versions) > 0 {
		versions := make([]string, len(obs.Versions))
		for i, v := range obs.Versions {
			versions[i] = migrate.VersionName(alias, v)
		}
		PrintKeyValue("Indices", strings.Join(versions, ", "))
	}
	if len(obs.Bindings) > 0 {
		indices := make([]string, 0, len(obs.Bindings))
		for index := range obs.Bindings {
			indices = append(indices, index)
		}
		sort.Strings(indices)
		for _, index := range indices {
			PrintKeyValue("Binding", fmt.Sprintf("%s -> %s", index, strings.Join(obs.Bindings[index], ", ")))
		}
	}
	if out.Conflict != "" {
		PrintNewline()
		PrintWarning(out.Conflict)
	}

	if len(out.Ledger) > 0 {
		PrintNewline()
		table := NewTable("VERSION", "INDEX", "STATUS", "DOCS", "CREATED", "CUTOVER", "DELETED")
		for _, v := range out.Ledger {
			created := v.CreatedAt
			table.AddRow(
				fmt.Sprintf("%d", v.Version),
				v.Physical,
				string(v.Status),
				formatCount(out.DocCounts, v.Physical),
				FormatTime(&created),
				FormatTime(v.CutoverAt),
				FormatTime(v.DeletedAt),
			)
		}
		table.Print()
	}
	PrintNewline()
	return nil
}

// formatCount shows the document count of physical, "-" when it was not counted
func formatCount(counts map[string]int64, physical string) string {
	count, ok := counts[physical]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d", count)
}
