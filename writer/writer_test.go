package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fableloom/fableloom/events"
	"github.com/fableloom/fableloom/store"
)

func newTestProject(t *testing.T) (*store.Store, *store.Project, *store.Chapter) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "fableloom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	project, err := s.CreateProject("book", "a test book")
	require.NoError(t, err)
	chapter, err := s.CreateChapter(project.ID, "chapter one")
	require.NoError(t, err)
	return s, project, chapter
}

func insertScene(t *testing.T, s *store.Store, chapterID, title, content string) *store.Scene {
	t.Helper()
	scene := &store.Scene{
		ID:                uuid.New().String(),
		ChapterID:         chapterID,
		Title:             title,
		Content:           content,
		Goals:             "advance plot",
		Conflicts:         "internal",
		Outcomes:          "open",
		CreationTimestamp: time.Now().UnixMicro(),
	}
	require.NoError(t, s.InsertScene(scene))
	return scene
}

func TestRunConsistencyCheckDetectsPatterns(t *testing.T) {
	s, project, chapter := newTestProject(t)
	insertScene(t, s, chapter.ID, "draft", "I walk in. [TODO] she smiles.")
	insertScene(t, s, chapter.ID, "clean", "The rain kept falling.")

	collector := &events.Collector{}
	e := New(s, collector)

	issues, err := e.RunConsistencyCheck(project.ID)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	categories := map[string]bool{}
	for _, issue := range issues {
		categories[issue.Category] = true
		require.Equal(t, project.ID, issue.ProjectID)
	}
	require.True(t, categories["facts"])
	require.True(t, categories["pov"])

	published := collector.Events()
	require.Len(t, published, 1)
	require.Equal(t, events.KindReportReady, published[0].Kind)
	require.Equal(t, project.ID, published[0].ProjectID)
	require.NotEmpty(t, published[0].ReportID)
}

func TestRunConsistencyCheckCleanProject(t *testing.T) {
	s, project, chapter := newTestProject(t)
	insertScene(t, s, chapter.ID, "clean", "The rain kept falling.")

	e := New(s, nil)
	issues, err := e.RunConsistencyCheck(project.ID)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestSummarizeScene(t *testing.T) {
	s, _, chapter := newTestProject(t)
	scene := insertScene(t, s, chapter.ID, "long", "one\ntwo\nthree\nfour")

	e := New(s, nil)
	summary, err := e.SummarizeScene(scene.ID)
	require.NoError(t, err)
	require.Equal(t, "one two three", summary)
}

func TestExportMarkdown(t *testing.T) {
	s, project, chapter := newTestProject(t)
	insertScene(t, s, chapter.ID, "opening", "It begins.")

	e := New(s, nil)
	dir := t.TempDir()
	path, err := e.ExportMarkdown(project.ID, dir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	rendered := string(content)
	require.Contains(t, rendered, "# book")
	require.Contains(t, rendered, "## chapter one")
	require.Contains(t, rendered, "### opening")
	require.Contains(t, rendered, "It begins.")
}

func TestProjectOpenListsScenesUnderChapter(t *testing.T) {
	s, project, chapterOne := newTestProject(t)
	chapterTwo, err := s.CreateChapter(project.ID, "chapter two")
	require.NoError(t, err)
	first := insertScene(t, s, chapterOne.ID, "arrival", "They arrive at dusk.")
	second := insertScene(t, s, chapterTwo.ID, "departure", "They leave at dawn.")

	cmd := newProjectCmd(s)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"open", project.ID})
	require.NoError(t, cmd.Execute())

	rendered := out.String()
	require.Contains(t, rendered, project.Name)
	chapterOneAt := strings.Index(rendered, chapterOne.Title)
	chapterTwoAt := strings.Index(rendered, chapterTwo.Title)
	firstAt := strings.Index(rendered, first.Title)
	secondAt := strings.Index(rendered, second.Title)
	require.True(t, chapterOneAt < firstAt && firstAt < chapterTwoAt)
	require.True(t, chapterTwoAt < secondAt)
}
