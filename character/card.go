// Package character implements character card v2 import, export and
// validation.
package character

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/fableloom/fableloom/store"
)

const specV2 = "chara_card_v2"

// ValidationResult lists the problems found in a raw card.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a raw JSON document against the card v2 shape. A malformed
// document is reported as invalid, not as an error.
func Validate(rawJSON string) ValidationResult {
	if !gjson.Valid(rawJSON) {
		return ValidationResult{Errors: []string{"invalid JSON"}}
	}

	var problems []string
	if gjson.Get(rawJSON, "spec").String() != specV2 {
		problems = append(problems, fmt.Sprintf("spec must be %s", specV2))
	}
	if !gjson.Get(rawJSON, "data").Exists() {
		problems = append(problems, "missing data object")
	}

	return ValidationResult{Valid: len(problems) == 0, Errors: problems}
}

// Import validates and persists a card, returning the stored character id.
func Import(s *store.Store, rawJSON string) (string, error) {
	result := Validate(rawJSON)
	if !result.Valid {
		return "", errors.Errorf("validation errors: %v", result.Errors)
	}
	return s.UpsertCharacter("", cardName(rawJSON), rawJSON)
}

// Upsert persists a card under the given id (a new id when empty) without
// requiring full v2 validity, matching the editing flow.
func Upsert(s *store.Store, id, rawJSON string) (string, error) {
	if !gjson.Valid(rawJSON) {
		return "", errors.New("invalid JSON")
	}
	return s.UpsertCharacter(id, cardName(rawJSON), rawJSON)
}

// Export returns the raw card JSON of a stored character.
func Export(s *store.Store, characterID string) (string, error) {
	character, err := s.GetCharacter(characterID)
	if err != nil {
		return "", err
	}
	return character.CardJSON, nil
}

func cardName(rawJSON string) string {
	if name := gjson.Get(rawJSON, "data.name").String(); name != "" {
		return name
	}
	return "Unnamed"
}
