package writer

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/store"
)

// NewCmd instantiates and returns the writer command tree.
func NewCmd(s *store.Store, e *Engine, exportsDir string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "writer",
		Short: "Long-form writing projects",
	}
	cmd.AddCommand(
		newProjectCmd(s),
		newChapterCmd(s),
		newDraftCmd(s, e),
		newExpandCmd(e),
		newRewriteCmd(e),
		newCheckCmd(e),
		newSummarizeCmd(e),
		newExportCmd(e, exportsDir),
	)
	return cmd
}

func newProjectCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage writing projects",
	}

	var description string
	newCmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create a writing project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := s.CreateProject(args[0], description)
			if err != nil {
				return err
			}
			cmd.Println(project.ID)
			return nil
		},
	}
	newCmd.Flags().StringVar(&description, "description", "", "project description")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List writing projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := s.ListProjects()
			if err != nil {
				return err
			}
			for _, project := range projects {
				cmd.Printf("%s  %s\n", project.ID, project.Name)
			}
			return nil
		},
	}

	openCmd := &cobra.Command{
		Use:   "open [project-id]",
		Short: "Show a project with its chapters and scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := s.OpenProject(args[0])
			if err != nil {
				return err
			}
			cmd.Println(bundle.Project.Name)
			for _, chapter := range bundle.Chapters {
				cmd.Printf("  %d. %s (%s)\n", chapter.Position, chapter.Title, chapter.ID)
				for _, scene := range bundle.Scenes {
					if scene.ChapterID != chapter.ID {
						continue
					}
					cmd.Printf("     - %s (%s)\n", scene.Title, scene.ID)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(newCmd, listCmd, openCmd)
	return cmd
}

func newChapterCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapter",
		Short: "Manage chapters",
	}

	newCmd := &cobra.Command{
		Use:   "new [project-id] [title]",
		Short: "Append a chapter to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapter, err := s.CreateChapter(args[0], args[1])
			if err != nil {
				return err
			}
			cmd.Printf("%s at position %d\n", chapter.ID, chapter.Position)
			return nil
		},
	}

	reorderCmd := &cobra.Command{
		Use:   "reorder [project-id] [chapter-id...]",
		Short: "Reorder chapters to the given sequence",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.ReorderChapters(args[0], args[1:])
		},
	}

	cmd.AddCommand(newCmd, reorderCmd)
	return cmd
}

func newDraftCmd(s *store.Store, e *Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "draft [chapter-id] [prompt]",
		Short: "Generate a draft scene in a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := e.GenerateDraft(args[0], args[1])
			if err != nil {
				return err
			}
			cmd.Println(scene.ID)
			cmd.Println(scene.Content)
			return nil
		},
	}
}

func newExpandCmd(e *Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "expand [scene-id]",
		Short: "Expand a scene with additional beats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := e.ExpandScene(args[0])
			if err != nil {
				return err
			}
			cmd.Println(scene.Content)
			return nil
		},
	}
}

func newRewriteCmd(e *Engine) *cobra.Command {
	var tone string
	cmd := &cobra.Command{
		Use:   "rewrite [scene-id]",
		Short: "Rewrite a scene in a given tone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := e.RewriteScene(args[0], tone)
			if err != nil {
				return err
			}
			cmd.Println(scene.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&tone, "tone", "", "target tone")
	return cmd
}

func newCheckCmd(e *Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "check [project-id]",
		Short: "Run a consistency check across a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := e.RunConsistencyCheck(args[0])
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				cmd.Println("no issues found")
				return nil
			}
			payload, err := json.MarshalIndent(issues, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(payload))
			return nil
		},
	}
}

func newSummarizeCmd(e *Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize [scene-id]",
		Short: "Summarize a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := e.SummarizeScene(args[0])
			if err != nil {
				return err
			}
			cmd.Println(summary)
			return nil
		},
	}
}

func newExportCmd(e *Engine, exportsDir string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export [project-id]",
		Short: "Export a project to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				path string
				err  error
			)
			switch format {
			case "docx":
				path, err = e.ExportDocx(args[0], exportsDir)
			default:
				path, err = e.ExportMarkdown(args[0], exportsDir)
			}
			if err != nil {
				return err
			}
			cmd.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "export format (markdown or docx)")
	return cmd
}
