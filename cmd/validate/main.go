package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <gamestate.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &StateValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type StateValidator struct {
	errors []string
}

func (v *StateValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	if !strings.HasSuffix(filepath.Base(filename), ".json") {
		return fmt.Errorf("state file must have .json extension: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validateBytes(filename, data)
}

func (v *StateValidator) validateBytes(filename string, data []byte) error {
	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var gs state.GameState
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&gs); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	v.validateState(&gs)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *StateValidator) validateState(gs *state.GameState) {
	for _, err := range state.Validate(gs) {
		v.addError(err.Error())
	}

	if gs.Player != nil {
		v.validateCharacter("player", gs.Player)
	}
	for _, group := range []struct {
		field string
		list  []actor.Character
	}{
		{"npc", gs.NPCs},
		{"monster", gs.Monsters},
		{"companion", gs.Companions},
	} {
		for i := range group.list {
			v.validateCharacter(group.field, &group.list[i])
		}
	}

	for _, loc := range gs.Locations {
		v.validateIDFormat("location ID", loc.ID)
	}
	for _, l := range gs.Store {
		v.validateIDFormat("store listing ID", l.ID)
	}
	for _, r := range gs.Recipes {
		v.validateIDFormat("recipe ID", r.ID)
	}
}

func (v *StateValidator) validateCharacter(field string, c *actor.Character) {
	v.validateIDFormat(field+" ID", c.ID)
	for _, s := range c.Skills {
		v.validateIDFormat(fmt.Sprintf("skill ID on %s", c.ID), s.ID)
	}
}

func (v *StateValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase letters, digits, '_' or '-'", fieldName, id))
	}
}

func (v *StateValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
