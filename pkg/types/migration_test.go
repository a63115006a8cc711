package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoriesFromConfig(t *testing.T) {
	categories := CategoriesFromConfig(MigrationConfig{
		SpamFlaggedRemovedFromSearch: true,
		Categories: []CategoryConfig{
			{Name: "users", Priority: 3, Enabled: true},
			{Name: "nodes", Priority: 1, Enabled: true, SpamFilter: true, Increment: 500},
			{Name: "institutions", Priority: 0, Enabled: false},
			{Name: "files", Priority: 1, Enabled: true, SpamFilter: true},
		},
	})

	require.Len(t, categories, 3)
	assert.Equal(t, "nodes", categories[0].Name)
	assert.Equal(t, "files", categories[1].Name, "equal priorities keep configured order")
	assert.Equal(t, "users", categories[2].Name)

	assert.Equal(t, int64(500), categories[0].Increment)
	assert.Equal(t, DefaultIncrement, categories[1].Increment)
	assert.Equal(t, []any{true}, categories[0].Args)
	assert.Empty(t, categories[2].Args)
}

func TestDocumentOp(t *testing.T) {
	assert.Equal(t, OpIndex, (&Document{}).Op())
	assert.Equal(t, OpDelete, (&Document{OpType: OpDelete}).Op())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{nil, ""},
		{errors.New("boom"), ErrorKindUnknown},
		{&ErrTransport{Op: "bulk", Err: context.DeadlineExceeded}, ErrorKindTransport},
		{&ErrBackend{Op: "refresh", Status: 500}, ErrorKindBackend},
		{fmt.Errorf("create nodes_v3: %w", &ErrProvisioningConflict{Index: "nodes_v3"}), ErrorKindProvisioningConflict},
		{&ErrAliasStateConflict{Alias: "nodes"}, ErrorKindAliasStateConflict},
		{fmt.Errorf("migrate nodes: %w", &ErrRunInProgress{Alias: "nodes"}), ErrorKindRunInProgress},
		{&ErrInvalidPage{Start: 10, End: 10}, ErrorKindInvalidPage},
		{&ErrDocumentTarget{ID: "x"}, ErrorKindDocumentTarget},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, KindOf(tt.err), "%v", tt.err)
	}

	transport := &ErrTransport{Op: "bulk", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, transport, context.DeadlineExceeded)
	assert.True(t, (&ErrTransport{}).From(fmt.Errorf("wrapped: %w", transport)))
	assert.False(t, (&ErrBackend{}).From(transport))
}

func TestErrAliasStateConflictMessage(t *testing.T) {
	err := &ErrAliasStateConflict{
		Alias:  "nodes",
		Reason: "bound to multiple indices",
		Bindings: map[string][]string{
			"nodes_v3": {"nodes"},
			"nodes_v2": {"nodes"},
		},
	}
	assert.Equal(t, "alias nodes in conflicting state (bound to multiple indices), observed [nodes_v2, nodes_v3]", err.Error())
}
