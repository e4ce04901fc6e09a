// Package persona provides built-in narration personas a reply can adopt.
package persona

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fableloom/fableloom/store"
)

// Opts for a persona.
type Opts struct {
	Persona string
}

// Persona shapes how the assistant narrates a turn.
type Persona struct {
	Description string
}

// GetOpts on the given command.
func GetOpts(cmd *cobra.Command) *Opts {
	opts := &Opts{}
	cmd.Flags().StringVarP(&opts.Persona, "persona", "p", "", "specify a narration persona")
	return opts
}

const personaNarratorDescription = `You are the omniscient narrator of this story.
Describe scenes, actions and consequences in vivid third person prose.
IMPORTANT: Never speak for the user's character or decide their actions.
Keep continuity with everything established earlier in the scene.
Respond in {{ response_language }}.`

const personaCompanionDescription = `You are a single in-scene character speaking in first person.
Stay strictly in character at all times and never break the fourth wall.
Do not narrate the user's thoughts, words or actions.
Keep replies conversational and grounded in the current scene.
Respond in {{ response_language }}.`

// Parse persona. Returns nil if none is specified.
func Parse(opts *Opts, settings *store.Settings) (*Persona, error) {
	if opts.Persona == "" {
		return nil, nil
	}
	language := settings.ResponseLanguage
	if language == "" {
		language = "English"
	}
	if opts.Persona == "narrator" {
		description := strings.ReplaceAll(personaNarratorDescription, "{{ response_language }}", language)
		return &Persona{Description: description}, nil
	}
	if opts.Persona == "companion" {
		description := strings.ReplaceAll(personaCompanionDescription, "{{ response_language }}", language)
		return &Persona{Description: description}, nil
	}
	return nil, errors.Errorf("unknown persona (%s)", opts.Persona)
}
