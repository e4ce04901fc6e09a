package writer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fableloom/fableloom/store"
)

// GenerateDraft creates a placeholder draft scene from a prompt. Hooking the
// writer up to the chat provider is out of scope for now; drafts are seeded
// deterministically and refined by hand.
func (e *Engine) GenerateDraft(chapterID, prompt string) (*store.Scene, error) {
	scene := &store.Scene{
		ID:                uuid.New().String(),
		ChapterID:         chapterID,
		Title:             "Generated Draft",
		Content:           fmt.Sprintf("Draft generated from prompt:\n\n%s", prompt),
		Goals:             "Advance plot",
		Conflicts:         "Internal conflict",
		Outcomes:          "Open ending",
		CreationTimestamp: time.Now().UnixMicro(),
	}
	if err := e.store.InsertScene(scene); err != nil {
		return nil, err
	}
	return scene, nil
}

// ExpandScene appends expansion beats to a scene's content.
func (e *Engine) ExpandScene(sceneID string) (*store.Scene, error) {
	scene, err := e.store.GetScene(sceneID)
	if err != nil {
		return nil, err
	}
	scene.Content = scene.Content + "\n\nExpanded details and sensory beats."
	if err := e.store.UpdateSceneContent(scene.ID, scene.Content); err != nil {
		return nil, err
	}
	return scene, nil
}

// RewriteScene prefixes a scene with a tone marker from a style profile.
func (e *Engine) RewriteScene(sceneID, tone string) (*store.Scene, error) {
	if tone == "" {
		tone = "neutral"
	}
	scene, err := e.store.GetScene(sceneID)
	if err != nil {
		return nil, err
	}
	scene.Content = fmt.Sprintf("[Tone: %s]\n%s", tone, scene.Content)
	if err := e.store.UpdateSceneContent(scene.ID, scene.Content); err != nil {
		return nil, err
	}
	return scene, nil
}
