package character

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/store"
)

// NewCmd instantiates and returns the character command tree.
func NewCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Manage character cards",
	}
	cmd.AddCommand(
		newImportCmd(s),
		newListCmd(s),
		newExportCmd(s),
	)
	return cmd
}

func newImportCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a chara_card_v2 JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawJSON, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading card file")
			}
			characterID, err := Import(s, string(rawJSON))
			if err != nil {
				return err
			}
			cmd.Println(characterID)
			return nil
		},
	}
}

func newListCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			characters, err := s.ListCharacters()
			if err != nil {
				return err
			}
			for _, character := range characters {
				cmd.Printf("%s  %s\n", character.ID, character.Name)
			}
			return nil
		},
	}
}

func newExportCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "export [character-id]",
		Short: "Print a character card as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardJSON, err := Export(s, args[0])
			if err != nil {
				return err
			}
			cmd.Println(cardJSON)
			return nil
		},
	}
}
