// Package chat implements the chat CLI commands over the turn engine.
package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/engine"
	"github.com/fableloom/fableloom/internal/cli"
	"github.com/fableloom/fableloom/lore"
	"github.com/fableloom/fableloom/persona"
	"github.com/fableloom/fableloom/store"
)

// NewCmd instantiates and returns the chat command tree.
func NewCmd(s *store.Store, e *engine.Engine) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Manage branching chats and send turns",
	}
	cmd.AddCommand(
		newCreateCmd(s),
		newListCmd(s),
		newSendCmd(s, e),
		newTimelineCmd(e),
		newForkCmd(s),
		newRegenerateCmd(s, e),
		newCompressCmd(e),
		newEditCmd(s),
		newDeleteCmd(s),
		newSceneCmd(s),
		newNoteCmd(s),
		newPresetCmd(s),
	)
	return cmd
}

func newSceneCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Manage a chat's roleplay scene state",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [chat-id] [payload]",
			Short: "Upsert the scene state JSON payload",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.SetSceneState(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "show [chat-id]",
			Short: "Print the scene state payload",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := s.GetSceneState(args[0])
				if err != nil {
					return err
				}
				cmd.Println(payload)
				return nil
			},
		},
	)
	return cmd
}

func newNoteCmd(s *store.Store) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "note [chat-id] [content]",
		Short: "Append an author note to a chat's memory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.AddMemoryEntry(args[0], role, args[1])
		},
	}
	cmd.Flags().StringVar(&role, "role", "author", "memory entry role")
	return cmd
}

func newPresetCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage style presets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save [name] [payload]",
			Short: "Save a style preset as a JSON prompt-block list",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var blocks []engine.PromptBlock
				if err := json.Unmarshal([]byte(args[1]), &blocks); err != nil {
					return errors.Wrap(err, "parsing preset payload")
				}
				presetID, err := s.SaveStylePreset(args[0], args[1])
				if err != nil {
					return err
				}
				cmd.Println(presetID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "render [name]",
			Short: "Print a preset's enabled blocks in composition order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				payload, err := s.GetStylePreset(args[0])
				if err != nil {
					return err
				}
				var blocks []engine.PromptBlock
				if err := json.Unmarshal([]byte(payload), &blocks); err != nil {
					return errors.Wrap(err, "parsing preset payload")
				}
				for _, block := range engine.ComposePrompt(blocks) {
					cmd.Println(block.Content)
				}
				return nil
			},
		},
	)
	return cmd
}

func newCreateCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Create a chat with its root branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, branch, err := s.CreateChat(args[0])
			if err != nil {
				return err
			}
			cli.Title("chat %s", chat.ID)
			cmd.Printf("root branch: %s\n", branch.ID)
			return nil
		},
	}
}

func newListCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chats, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			chats, err := s.ListChats()
			if err != nil {
				return err
			}
			for _, chat := range chats {
				cmd.Printf("%s  %s\n", chat.ID, chat.Title)
			}
			return nil
		},
	}
}

func newSendCmd(s *store.Store, e *engine.Engine) *cobra.Command {
	var opts struct {
		ChatID   string
		BranchID string
	}
	cmd := &cobra.Command{
		Use:   "send [content]",
		Short: "Send a user message and stream the assistant reply",
		Args:  cobra.ExactArgs(1),
	}
	personaOpts := persona.GetOpts(cmd)
	loreOpts := lore.GetOpts(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		snapshot, err := engine.LoadSnapshot(s)
		if err != nil {
			return err
		}
		settings, err := s.GetSettings()
		if err != nil {
			return err
		}
		activePersona, err := persona.Parse(personaOpts, settings)
		if err != nil {
			return err
		}
		loreEntries, err := lore.Parse(loreOpts)
		if err != nil {
			return err
		}
		systemExtras := []string{}
		if activePersona != nil {
			systemExtras = append(systemExtras, activePersona.Description)
		}
		for _, entry := range loreEntries {
			systemExtras = append(systemExtras, entry.SystemBlock())
		}
		cli.UserInput("%s\n", args[0])
		timeline, err := e.Send(cmd.Context(), snapshot, &engine.SendRequest{
			ChatID:       opts.ChatID,
			Content:      args[0],
			BranchID:     opts.BranchID,
			SystemExtras: systemExtras,
		})
		if err != nil {
			return err
		}
		cli.Separator()
		cmd.Printf("%d messages on timeline\n", len(timeline))
		return nil
	}
	cmd.Flags().StringVar(&opts.ChatID, "chat", "", "chat id")
	cmd.Flags().StringVar(&opts.BranchID, "branch", "", "branch id (defaults to the root branch)")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func newTimelineCmd(e *engine.Engine) *cobra.Command {
	var opts struct {
		BranchID string
	}
	cmd := &cobra.Command{
		Use:   "timeline [chat-id]",
		Short: "Print the ordered timeline of a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeline, err := e.Timeline(args[0], opts.BranchID)
			if err != nil {
				return err
			}
			for _, message := range timeline {
				if message.Role == store.UserRole {
					cli.UserInput("%s\n", message.Content)
					continue
				}
				cli.AIOutput("%s\n", message.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BranchID, "branch", "", "branch id (defaults to the root branch)")
	return cmd
}

func newForkCmd(s *store.Store) *cobra.Command {
	var opts struct {
		Name string
	}
	cmd := &cobra.Command{
		Use:   "fork [chat-id] [message-id]",
		Short: "Fork a new branch from a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, err := s.CreateBranch(args[0], args[1], opts.Name)
			if err != nil {
				return err
			}
			cmd.Printf("branch %s forked from message %s\n", branch.ID, branch.ParentMessageID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "fork", "display name of the new branch")
	return cmd
}

func newRegenerateCmd(s *store.Store, e *engine.Engine) *cobra.Command {
	var opts struct {
		BranchID string
	}
	cmd := &cobra.Command{
		Use:   "regenerate [chat-id]",
		Short: "Produce a fresh assistant reply to the last user message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := engine.LoadSnapshot(s)
			if err != nil {
				return err
			}
			timeline, err := e.Regenerate(cmd.Context(), snapshot, args[0], opts.BranchID)
			if err != nil {
				return err
			}
			cli.Separator()
			cmd.Printf("%d messages on timeline\n", len(timeline))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BranchID, "branch", "", "branch id (defaults to the root branch)")
	return cmd
}

func newCompressCmd(e *engine.Engine) *cobra.Command {
	var opts struct {
		BranchID string
	}
	cmd := &cobra.Command{
		Use:   "compress [chat-id]",
		Short: "Print a short digest of the recent timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest, err := e.CompressContext(args[0], opts.BranchID)
			if err != nil {
				return err
			}
			cmd.Println(digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.BranchID, "branch", "", "branch id (defaults to the root branch)")
	return cmd
}

func newEditCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [message-id] [content]",
		Short: "Edit a message in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.UpdateMessage(args[0], args[1], engine.RoughTokenCount(args[1]))
		},
	}
}

func newDeleteCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [message-id]",
		Short: "Soft-delete a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.SoftDeleteMessage(args[0])
		},
	}
}
