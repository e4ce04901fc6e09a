// Package settings implements the application settings CLI commands.
package settings

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/store"
)

// NewCmd instantiates and returns the settings command tree.
func NewCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and update application settings",
	}
	cmd.AddCommand(
		newShowCmd(s),
		newSetCmd(s),
		newResetCmd(s),
	)
	return cmd
}

func newShowCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := s.GetSettings()
			if err != nil {
				return err
			}
			payload, err := json.MarshalIndent(settings, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(payload))
			return nil
		},
	}
}

func newSetCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Patch settings fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := s.GetSettings()
			if err != nil {
				return err
			}
			// Only flags the caller actually set are applied.
			if cmd.Flags().Changed("theme") {
				settings.Theme, _ = cmd.Flags().GetString("theme")
			}
			if cmd.Flags().Changed("font-scale") {
				settings.FontScale, _ = cmd.Flags().GetFloat64("font-scale")
			}
			if cmd.Flags().Changed("density") {
				settings.Density, _ = cmd.Flags().GetString("density")
			}
			if cmd.Flags().Changed("censorship-mode") {
				settings.CensorshipMode, _ = cmd.Flags().GetString("censorship-mode")
			}
			if cmd.Flags().Changed("full-local-mode") {
				settings.FullLocalMode, _ = cmd.Flags().GetBool("full-local-mode")
			}
			if cmd.Flags().Changed("response-language") {
				settings.ResponseLanguage, _ = cmd.Flags().GetString("response-language")
			}
			return s.WriteSettings(settings)
		},
	}
	cmd.Flags().String("theme", "", "ui theme")
	cmd.Flags().Float64("font-scale", 1.0, "font scale factor")
	cmd.Flags().String("density", "", "layout density")
	cmd.Flags().String("censorship-mode", "", "censorship mode")
	cmd.Flags().Bool("full-local-mode", false, "restrict all providers to loopback URLs")
	cmd.Flags().String("response-language", "", "assistant response language")
	return cmd
}

func newResetCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.WriteSettings(store.DefaultSettings())
		},
	}
}
