package engine

import "sort"

// PromptBlock is a labeled unit of context, constructed per turn and never
// persisted. Blocks are assembled into the provider context by ComposePrompt.
type PromptBlock struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
	Order   int    `json:"order"`
	Content string `json:"content"`
}

// ComposePrompt orders blocks ascending by Order, keeping the original
// relative position on ties, and drops disabled blocks. Pure and
// deterministic; reapplying it to its own output is a no-op.
func ComposePrompt(blocks []PromptBlock) []PromptBlock {
	sorted := make([]PromptBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	composed := make([]PromptBlock, 0, len(sorted))
	for _, block := range sorted {
		if block.Enabled {
			composed = append(composed, block)
		}
	}
	return composed
}
