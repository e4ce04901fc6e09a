package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExportMarkdown renders a project to a markdown file under outputDir and
// records the export. Returns the output path.
func (e *Engine) ExportMarkdown(projectID, outputDir string) (string, error) {
	bundle, err := e.store.OpenProject(projectID)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "# %s\n\n%s\n\n", bundle.Project.Name, bundle.Project.Description)
	for _, chapter := range bundle.Chapters {
		fmt.Fprintf(&out, "## %s\n\n", chapter.Title)
		for _, scene := range bundle.Scenes {
			if scene.ChapterID != chapter.ID {
				continue
			}
			fmt.Fprintf(&out, "### %s\n\n%s\n\n", scene.Title, scene.Content)
		}
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("book-%s.md", projectID))
	if err := os.WriteFile(outputPath, []byte(out.String()), 0644); err != nil {
		return "", errors.Wrap(err, "writing markdown export")
	}
	if err := e.store.RecordExport(projectID, "markdown", outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// ExportDocx produces the docx flavor of the export. Currently a plain copy
// of the markdown rendering.
// TODO: render real docx once an exporter is picked.
func (e *Engine) ExportDocx(projectID, outputDir string) (string, error) {
	markdownPath, err := e.ExportMarkdown(projectID, outputDir)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", errors.Wrap(err, "reading markdown export")
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("book-%s.docx", projectID))
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", errors.Wrap(err, "writing docx export")
	}
	if err := e.store.RecordExport(projectID, "docx", outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
