package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposePromptOrdersAndFilters(t *testing.T) {
	blocks := []PromptBlock{
		{ID: "2", Kind: "history", Enabled: true, Order: 2, Content: "h"},
		{ID: "3", Kind: "history", Enabled: false, Order: 0, Content: "dropped"},
		{ID: "1", Kind: "system", Enabled: true, Order: 1, Content: "s"},
	}

	composed := ComposePrompt(blocks)
	require.Len(t, composed, 2)
	require.Equal(t, "1", composed[0].ID)
	require.Equal(t, "2", composed[1].ID)
}

func TestComposePromptStableOnTies(t *testing.T) {
	blocks := []PromptBlock{
		{ID: "a", Enabled: true, Order: 1},
		{ID: "b", Enabled: true, Order: 1},
		{ID: "c", Enabled: true, Order: 1},
	}

	composed := ComposePrompt(blocks)
	require.Equal(t, []string{"a", "b", "c"}, []string{composed[0].ID, composed[1].ID, composed[2].ID})
}

func TestComposePromptIdempotent(t *testing.T) {
	blocks := []PromptBlock{
		{ID: "2", Enabled: true, Order: 5},
		{ID: "1", Enabled: true, Order: 3},
		{ID: "x", Enabled: false, Order: 1},
	}

	once := ComposePrompt(blocks)
	twice := ComposePrompt(once)
	require.Equal(t, once, twice)
}

func TestComposePromptDoesNotMutateInput(t *testing.T) {
	blocks := []PromptBlock{
		{ID: "2", Enabled: true, Order: 2},
		{ID: "1", Enabled: true, Order: 1},
	}

	_ = ComposePrompt(blocks)
	require.Equal(t, "2", blocks[0].ID)
}
