// Package provider implements provider profile CLI commands.
package provider

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/engine"
	"github.com/fableloom/fableloom/store"
)

// NewCmd instantiates and returns the provider command tree.
func NewCmd(s *store.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage completion provider profiles",
	}
	cmd.AddCommand(
		newAddCmd(s),
		newListCmd(s),
		newUseCmd(s),
		newTestCmd(s),
		newModelsCmd(s),
		newDeleteCmd(s),
	)
	return cmd
}

func newAddCmd(s *store.Store) *cobra.Command {
	provider := &store.Provider{}
	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Add or update a provider profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider.ID = args[0]
			if provider.FullLocalOnly && !engine.IsLoopbackURL(provider.BaseURL) {
				return errors.Wrap(engine.ErrPolicyViolation, "full local provider requires a loopback base URL")
			}
			if err := s.UpsertProvider(provider); err != nil {
				return err
			}
			cmd.Printf("provider %s saved (key %s)\n", provider.ID, store.MaskAPIKey(provider.APIKey))
			return nil
		},
	}
	cmd.Flags().StringVar(&provider.Name, "name", "", "display name")
	cmd.Flags().StringVar(&provider.BaseURL, "base-url", "", "OpenAI-compatible base URL")
	cmd.Flags().StringVar(&provider.APIKey, "api-key", "", "bearer token")
	cmd.Flags().StringVar(&provider.ProxyURL, "proxy-url", "", "optional egress proxy")
	cmd.Flags().BoolVar(&provider.FullLocalOnly, "local-only", false, "restrict this provider to loopback URLs")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("base-url")
	return cmd
}

func newListCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provider profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := s.ListProviders()
			if err != nil {
				return err
			}
			for _, provider := range providers {
				localOnly := ""
				if provider.FullLocalOnly {
					localOnly = " [local-only]"
				}
				cmd.Printf("%s  %s  %s  %s%s\n", provider.ID, provider.Name, provider.BaseURL, provider.APIKey, localOnly)
			}
			return nil
		},
	}
}

func newUseCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "use [provider-id] [model-id]",
		Short: "Select the active provider and model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := s.SetActiveSelection(args[0], args[1])
			if err != nil {
				return err
			}
			cmd.Printf("active: %s / %s\n", settings.ActiveProviderID, settings.ActiveModel)
			return nil
		},
	}
}

func newTestCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "test [provider-id]",
		Short: "Check a provider against the local-only gates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := s.GetProvider(args[0])
			if err != nil {
				return err
			}
			settings, err := s.GetSettings()
			if err != nil {
				return err
			}
			if engine.TestConnection(provider, settings.FullLocalMode) {
				cmd.Println("ok")
			} else {
				cmd.Println("blocked by local-only policy")
			}
			return nil
		},
	}
}

func newModelsCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "models [provider-id]",
		Short: "List the models a provider offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := s.GetProvider(args[0])
			if err != nil {
				return err
			}
			settings, err := s.GetSettings()
			if err != nil {
				return err
			}
			models, err := engine.FetchModels(cmd.Context(), provider, settings.FullLocalMode)
			if err != nil {
				return err
			}
			for _, model := range models {
				cmd.Println(model)
			}
			return nil
		},
	}
}

func newDeleteCmd(s *store.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [provider-id]",
		Short: "Delete a provider profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.DeleteProvider(args[0])
		},
	}
}
