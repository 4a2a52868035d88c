package state

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/rules-engine/pkg/actor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPlayer() *actor.Character {
	return &actor.Character{
		ID:        "hero",
		Name:      "hero",
		Kind:      actor.KindPlayer,
		Level:     1,
		BaseStats: map[string]int{actor.StatAttack: 10, actor.StatDefense: 5, actor.StatSpeed: 8},
		Health:    actor.Resource{Current: 30, Max: 30},
		Mana:      actor.Resource{Current: 10, Max: 10},
	}
}

func testNPC(id string) actor.Character {
	c := actor.Character{
		ID:        id,
		Name:      id,
		Kind:      actor.KindNPC,
		BaseStats: map[string]int{actor.StatAttack: 6, actor.StatDefense: 3, actor.StatSpeed: 5},
		Health:    actor.Resource{Current: 20, Max: 20},
	}
	c.RecalculateStats()
	return c
}

func newTestState(genre Genre) *GameState {
	return NewGameState(genre, testPlayer())
}

func ironSword() actor.Item {
	return actor.Item{Name: "Iron Sword", Type: "Weapon", Quantity: 1, Effects: []actor.StatEffect{{Stat: actor.StatAttack, Value: 5}}}
}

func steelSword() actor.Item {
	return actor.Item{Name: "Steel Sword", Type: "Weapon", Quantity: 1, Effects: []actor.StatEffect{{Stat: actor.StatAttack, Value: 8}}}
}

// cultivationState is a cultivation game with a skill, talents, a sect,
// a meridian tree and a recipe.
func cultivationState() *GameState {
	gs := newTestState(GenreCultivation)
	gs.Player.Cultivation = &actor.Cultivation{Qi: 100, Enlightenment: 1}
	gs.Player.Sect = &actor.SectMembership{SectID: "azure_cloud", Contribution: 50}
	gs.Player.Skills = []actor.Skill{{
		ID:          "cloud_sword",
		Name:        "Cloud Sword",
		Level:       1,
		Mastery:     actor.MasteryNovice,
		TalentSlots: 1,
	}}
	gs.Player.LearnedTalents = []actor.Talent{{ID: "swift"}, {ID: "keen"}}
	gs.Acupoints = []Acupoint{
		{ID: "lung", Name: "Phế Kinh", Cost: 30, Effects: []actor.StatEffect{{Stat: actor.StatDefense, Value: 2}}},
		{ID: "heart", Name: "Tâm Kinh", Cost: 50, Prerequisite: "lung", Effects: []actor.StatEffect{{Stat: actor.StatAttack, Value: 4}}},
	}
	gs.Recipes = []Recipe{{
		ID:        "healing_pill",
		Materials: []Material{{Name: "Herb", Quantity: 2}},
		Output:    actor.Item{Name: "Healing Pill", Type: "Consumable", Quantity: 1},
	}}
	gs.Store = []StoreListing{
		{ID: "pill", Kind: ListingItem, Price: 20, Item: &actor.Item{Name: "Qi Pill", Type: "Consumable", Quantity: 1}},
		{ID: "palm", Kind: ListingSkill, Price: 40, Skill: &actor.Skill{ID: "iron_palm", Name: "Iron Palm", Level: 1}},
	}
	gs.NPCs = []actor.Character{testNPC("elder_wu")}
	return gs
}
