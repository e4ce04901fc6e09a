package engine

import (
	"fmt"
	"strings"
)

// CompressContext produces a short digest of the most recent messages on a
// branch, newest first, one "role: first line" entry per message. This is an
// explicitly invoked utility; turn assembly never truncates.
func (e *Engine) CompressContext(chatID, branchID string) (string, error) {
	timeline, err := e.Timeline(chatID, branchID)
	if err != nil {
		return "", err
	}

	const window = 8
	var lines []string
	for index := len(timeline) - 1; index >= 0 && len(lines) < window; index-- {
		message := timeline[index]
		firstLine, _, _ := strings.Cut(message.Content, "\n")
		lines = append(lines, fmt.Sprintf("%s: %s", message.Role, firstLine))
	}
	return strings.Join(lines, "\n"), nil
}
