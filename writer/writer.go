// Package writer implements the long-form writing companion: projects,
// chapters, scenes, pattern-based consistency checks and exports.
package writer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fableloom/fableloom/events"
	"github.com/fableloom/fableloom/store"
)

// Engine drives writer operations over the store, emitting report events to
// the sink.
type Engine struct {
	store *store.Store
	sink  events.Sink
}

// New creates a writer engine. A nil sink discards events.
func New(s *store.Store, sink events.Sink) *Engine {
	if sink == nil {
		sink = events.NullSink{}
	}
	return &Engine{store: s, sink: sink}
}

// ConsistencyIssue is one finding of the pattern-based consistency checker.
type ConsistencyIssue struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Severity  string `json:"severity"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// checkScenes runs the pattern heuristics over a project's scenes.
func checkScenes(projectID string, scenes []*store.Scene) []ConsistencyIssue {
	var issues []ConsistencyIssue
	for _, scene := range scenes {
		if strings.Contains(scene.Content, "[TODO]") {
			issues = append(issues, ConsistencyIssue{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Severity:  "medium",
				Category:  "facts",
				Message:   fmt.Sprintf("Scene %q still contains TODO markers", scene.Title),
			})
		}
		if strings.Contains(scene.Content, "I ") && strings.Contains(scene.Content, "she ") {
			issues = append(issues, ConsistencyIssue{
				ID:        uuid.New().String(),
				ProjectID: projectID,
				Severity:  "low",
				Category:  "pov",
				Message:   fmt.Sprintf("Scene %q may mix POV styles", scene.Title),
			})
		}
	}
	return issues
}

// RunConsistencyCheck checks every scene of a project, persists the report
// and emits a report-ready event. Event delivery is best-effort.
func (e *Engine) RunConsistencyCheck(projectID string) ([]ConsistencyIssue, error) {
	bundle, err := e.store.OpenProject(projectID)
	if err != nil {
		return nil, err
	}

	issues := checkScenes(projectID, bundle.Scenes)
	payload, err := json.Marshal(issues)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling issues")
	}
	reportID, err := e.store.SaveConsistencyReport(projectID, string(payload))
	if err != nil {
		return nil, err
	}

	err = e.sink.Publish(events.Event{
		Kind:      events.KindReportReady,
		ProjectID: projectID,
		ReportID:  reportID,
	})
	if err != nil {
		log.Warn().Err(err).Str("project_id", projectID).Msg("dropping report-ready notification")
	}

	return issues, nil
}

// SummarizeScene returns the first lines of a scene as a short summary.
func (e *Engine) SummarizeScene(sceneID string) (string, error) {
	scene, err := e.store.GetScene(sceneID)
	if err != nil {
		return "", err
	}
	lines := strings.Split(scene.Content, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return strings.Join(lines, " "), nil
}
