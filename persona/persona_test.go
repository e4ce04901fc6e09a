package persona

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fableloom/fableloom/store"
)

func TestParseNoneSpecified(t *testing.T) {
	p, err := Parse(&Opts{}, store.DefaultSettings())
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestParseNarratorTemplatesLanguage(t *testing.T) {
	settings := store.DefaultSettings()
	settings.ResponseLanguage = "French"
	p, err := Parse(&Opts{Persona: "narrator"}, settings)
	require.NoError(t, err)
	require.Contains(t, p.Description, "omniscient narrator")
	require.Contains(t, p.Description, "Respond in French.")
	require.NotContains(t, p.Description, "{{ response_language }}")
}

func TestParseCompanion(t *testing.T) {
	p, err := Parse(&Opts{Persona: "companion"}, store.DefaultSettings())
	require.NoError(t, err)
	require.Contains(t, p.Description, "first person")
	require.Contains(t, p.Description, "Respond in English.")
}

func TestParseUnknownPersona(t *testing.T) {
	_, err := Parse(&Opts{Persona: "pirate"}, store.DefaultSettings())
	require.Error(t, err)
}
