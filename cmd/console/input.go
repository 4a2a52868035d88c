package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

type commandKind int

const (
	cmdNone commandKind = iota
	cmdHelp
	cmdCombat
	cmdTarget
	cmdAction
	cmdUpdate
	cmdSheet
	cmdCopy
	cmdRefresh
)

// command is one parsed line of console input.
type command struct {
	kind     commandKind
	combat   combat.Action
	target   string
	envelope state.Envelope
	update   *state.KnowledgeUpdate
	arg      string
}

// parseInput turns a line of input into a command. Plain text is a combat
// description aimed at the current target.
func parseInput(input string) (command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return command{}, nil
	}
	if !strings.HasPrefix(input, "/") {
		return command{kind: cmdCombat, combat: combat.Action{Description: input}}, nil
	}

	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "/help":
		return command{kind: cmdHelp}, nil
	case "/attack":
		return command{kind: cmdCombat, combat: combat.Action{Type: combat.ActionAttack, Description: rest}}, nil
	case "/defend":
		return command{kind: cmdCombat, combat: combat.Action{Type: combat.ActionDefend, Description: rest}}, nil
	case "/flee":
		return command{kind: cmdCombat, combat: combat.Action{Type: combat.ActionFlee, Description: rest}}, nil
	case "/skill":
		if rest == "" {
			return command{}, fmt.Errorf("usage: /skill <skill-id>")
		}
		return command{kind: cmdCombat, combat: combat.Action{Type: combat.ActionSkill, SkillID: rest}}, nil
	case "/target":
		if rest == "" {
			return command{}, fmt.Errorf("usage: /target <character-id>")
		}
		return command{kind: cmdTarget, target: rest}, nil
	case "/action":
		kind, payload, _ := strings.Cut(rest, " ")
		if kind == "" {
			return command{}, fmt.Errorf("usage: /action <kind> [json]")
		}
		env := state.Envelope{Kind: state.ActionKind(kind)}
		if payload = strings.TrimSpace(payload); payload != "" {
			if !json.Valid([]byte(payload)) {
				return command{}, fmt.Errorf("payload is not valid JSON")
			}
			env.Payload = json.RawMessage(payload)
		}
		return command{kind: cmdAction, envelope: env}, nil
	case "/update":
		var u state.KnowledgeUpdate
		if err := json.Unmarshal([]byte(rest), &u); err != nil {
			return command{}, fmt.Errorf("invalid update: %w", err)
		}
		return command{kind: cmdUpdate, update: &u}, nil
	case "/sheet":
		return command{kind: cmdSheet, arg: rest}, nil
	case "/copy":
		return command{kind: cmdCopy}, nil
	case "/refresh":
		return command{kind: cmdRefresh}, nil
	}
	return command{}, fmt.Errorf("unknown command %s, try /help", name)
}
