package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError(t *testing.T) {
	assert.Empty(t, FormatError(nil))
	assert.Equal(t, "plain", FormatError(errors.New("plain")))

	err := fmt.Errorf("lock: %w", &types.ErrRunInProgress{Alias: "website"})
	assert.Equal(t, "Another migration is running for this alias: lock: migration already running for alias: website", FormatError(err))
	assert.NotEmpty(t, GetErrorSuggestions(err))
}

func TestGetErrorSuggestions(t *testing.T) {
	assert.Nil(t, GetErrorSuggestions(nil))
	assert.Nil(t, GetErrorSuggestions(errors.New("plain")))

	unauthorized := &types.ErrBackend{Op: "ping", Status: 401, Type: "security_exception"}
	assert.Equal(t, []string{"Set search.username and search.password"}, GetErrorSuggestions(unauthorized))

	conflict := &types.ErrAliasStateConflict{Alias: "website"}
	assert.Equal(t, ErrorSuggestions[types.ErrorKindAliasStateConflict], GetErrorSuggestions(conflict))
}

func TestTable(t *testing.T) {
	table := NewTable("NAME", "DOCS")
	assert.Empty(t, table.String())

	table.AddRow("institutions", "12")
	table.AddRow("nodes", "4051", "ignored")

	lines := strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	want := []string{
		"  NAME          DOCS",
		"  " + strings.Repeat("─", 20),
		"  institutions  12",
		"  nodes         4051",
	}
	for i, line := range lines {
		assert.Equal(t, want[i], strings.TrimRight(line, " "))
	}
}

func TestTableWidthsCountRunes(t *testing.T) {
	table := NewTable("INDEX")
	table.AddRow("nodes_v3 → nodes")
	assert.Equal(t, 16, table.Widths[0])
}

func TestFormatEventData(t *testing.T) {
	data := map[string]any{"to": "nodes_v3", "alias": "nodes", "from": ""}
	assert.Equal(t, "alias=nodes to=nodes_v3", formatEventData(data))
	assert.Empty(t, formatEventData(nil))
}

func TestFormatCount(t *testing.T) {
	counts := map[string]int64{"nodes_v3": 4051, "nodes_v2": 0}
	assert.Equal(t, "4051", formatCount(counts, "nodes_v3"))
	assert.Equal(t, "0", formatCount(counts, "nodes_v2"))
	assert.Equal(t, "-", formatCount(counts, "nodes_v1"))
}
