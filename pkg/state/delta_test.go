package state

import (
	"testing"

	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaWorker_Apply(t *testing.T) {
	gs := cultivationState()
	gs.Player.Inventory = []actor.Item{{Name: "Herb", Quantity: 3}}
	gs.Player.Skills[0].Talents = []actor.Talent{{ID: "swift"}}
	gs.Player.LearnedTalents = []actor.Talent{{ID: "keen"}}

	update := &KnowledgeUpdate{
		NPCs: []actor.Character{
			{ID: "elder_wu", Name: "elder_wu", BaseStats: map[string]int{actor.StatAttack: 20}},
			{ID: "ferryman", Name: "Ferryman", Relationship: 10},
		},
		Locations:      []Location{{ID: "dock", Name: "River Dock", Exits: []string{"market"}}},
		Quests:         []Quest{{ID: "q1", Title: "Cross the river", Status: "active"}},
		Memories:       []Memory{{ID: "m1", Text: "The ferryman wants silver."}},
		ItemsGained:    []actor.Item{{Name: "Herb", Quantity: 2}, {Name: "Silver", Quantity: 5}},
		ItemsLost:      []Material{{Name: "Herb", Quantity: 4}, {Name: "Map", Quantity: 1}},
		SkillsLearned:  []actor.Skill{{ID: "river_step", Name: "River Step", Level: 1}},
		TalentsLearned: []actor.Talent{{ID: "swift"}, {ID: "keen"}, {ID: "calm"}},
		RelationshipChanges: map[string]int{
			"elder_wu": 500,
			"ferryman": -15,
			"ghost":    5,
			"hero":     5,
		},
		QiGained:            -500,
		EnlightenmentGained: 2,
		ContributionGained:  25,
		ElapsedMinutes:      45,
		SuggestedActions:    []string{"Pay the ferryman", "Swim"},
		Summary:             "You reach the dock.",
	}

	work := gs.Clone()
	NewDeltaWorker(work, update, testLogger()).Apply()

	assert.Equal(t, 1, work.Turn)
	require.Len(t, work.History, 1)
	assert.Equal(t, 0, work.History[0].Turn)
	assert.Empty(t, work.History[0].History)

	p := work.Player
	assert.Equal(t, 1, actor.CountItem(p.Inventory, "Herb"))
	assert.Equal(t, 5, actor.CountItem(p.Inventory, "Silver"))
	assert.Equal(t, 0, actor.CountItem(p.Inventory, "Map"))
	assert.GreaterOrEqual(t, p.SkillIndex("river_step"), 0)

	var pool []string
	for _, tl := range p.LearnedTalents {
		pool = append(pool, tl.ID)
	}
	assert.Equal(t, []string{"keen", "calm"}, pool, "known talents are not duplicated")

	assert.Equal(t, 0, p.Cultivation.Qi, "qi clamps at zero")
	assert.Equal(t, 3, p.Cultivation.Enlightenment)
	assert.Equal(t, 75, p.Sect.Contribution)
	assert.Equal(t, 0, p.Relationship, "player relationship is not adjusted")

	require.Len(t, work.NPCs, 2)
	assert.Equal(t, 20, work.NPCs[0].Stats[actor.StatAttack], "upserted characters get derived stats")
	assert.Equal(t, actor.MaxRelationship, work.NPCs[0].Relationship)
	assert.Equal(t, actor.KindNPC, work.NPCs[1].Kind)
	assert.Equal(t, -5, work.NPCs[1].Relationship)

	assert.Len(t, work.Locations, 1)
	assert.Len(t, work.Quests, 1)
	assert.Len(t, work.Memories, 1)
	assert.Equal(t, 45, work.ElapsedMinutes)
	assert.Equal(t, []string{"Pay the ferryman", "Swim"}, work.SuggestedActions)
	assert.Equal(t, "You reach the dock.", work.Summary)

	assert.Empty(t, Validate(work))

	// The update's own slices are never aliased into the state.
	update.NPCs[1].Name = "changed"
	update.SuggestedActions[0] = "changed"
	assert.Equal(t, "Ferryman", work.NPCs[1].Name)
	assert.Equal(t, "Pay the ferryman", work.SuggestedActions[0])
}

func TestDeltaWorker_PlayerReplacement(t *testing.T) {
	gs := newTestState(GenreFantasy)
	replacement := testPlayer()
	replacement.BaseStats[actor.StatAttack] = 99
	replacement.Kind = actor.KindNPC

	next := Apply(gs, ApplyKnowledgeUpdate{Update: &KnowledgeUpdate{Player: replacement}})
	assert.Equal(t, 99, next.Player.Stats[actor.StatAttack])
	assert.Equal(t, actor.KindPlayer, next.Player.Kind)
	assert.NotSame(t, replacement, next.Player)
}

func TestDeltaWorker_CombatSignal(t *testing.T) {
	gs := newTestState(GenreFantasy)
	gs.Monsters = []actor.Character{testNPC("wolf")}

	started := Apply(gs, ApplyKnowledgeUpdate{Update: &KnowledgeUpdate{
		Combat: &CombatSignal{Start: true, CombatantIDs: []string{"wolf"}},
	}})
	assert.True(t, started.Combat.Active)
	assert.Equal(t, combat.StatusStarting, started.Combat.Status)
	assert.Equal(t, []string{"wolf"}, started.Combat.CombatantIDs)

	ended := Apply(started, ApplyKnowledgeUpdate{Update: &KnowledgeUpdate{Combat: &CombatSignal{End: true}}})
	assert.False(t, ended.Combat.Active)
	assert.Equal(t, combat.StatusNotInCombat, ended.Combat.Status)
	assert.Empty(t, ended.Combat.CombatantIDs)
}

func TestDeltaWorker_EmptyUpdate(t *testing.T) {
	gs := newTestState(GenreFantasy)
	u := &KnowledgeUpdate{}
	assert.True(t, u.IsEmpty())

	next, d := Reduce(gs, ApplyKnowledgeUpdate{Update: u})
	require.True(t, d.Applied)
	assert.Equal(t, 1, next.Turn, "an empty update still advances the turn")
	assert.Len(t, next.History, 1)

	_, d = Reduce(gs, ApplyKnowledgeUpdate{})
	assert.Equal(t, RejectMalformed, d.Rejection.Code)
}

func TestDeltaWorker_ContributionWithoutSect(t *testing.T) {
	gs := newTestState(GenreCultivation)
	next := Apply(gs, ApplyKnowledgeUpdate{Update: &KnowledgeUpdate{ContributionGained: 10, InterventionGained: -3}})
	assert.Nil(t, next.Player.Sect)
	assert.Equal(t, 0, next.Player.InterventionPoints)
}

func TestDeltaWorker_RelearnSkillKeepsTalents(t *testing.T) {
	gs := cultivationState()
	gs.Player.Skills[0].Talents = []actor.Talent{{ID: "swift"}}
	gs.Player.LearnedTalents = []actor.Talent{{ID: "keen"}}

	next := Apply(gs, ApplyKnowledgeUpdate{Update: &KnowledgeUpdate{
		SkillsLearned: []actor.Skill{{ID: "cloud_sword", Name: "Cloud Sword", Level: 2, TalentSlots: 1}},
	}})

	require.Len(t, next.Player.Skills, 1)
	assert.Equal(t, 2, next.Player.Skills[0].Level)
	assert.Empty(t, next.Player.Skills[0].Talents)
	assert.GreaterOrEqual(t, actor.TalentIndex(next.Player.LearnedTalents, "swift"), 0, "unslotted talent returns to the pool")
	assert.GreaterOrEqual(t, actor.TalentIndex(next.Player.LearnedTalents, "keen"), 0)
	assert.Empty(t, Validate(next))

	// A re-learned skill that slots a pooled talent takes it out of the pool.
	slotted := Apply(next, ApplyKnowledgeUpdate{Update: &KnowledgeUpdate{
		SkillsLearned: []actor.Skill{{ID: "cloud_sword", Level: 3, TalentSlots: 1, Talents: []actor.Talent{{ID: "keen"}}}},
	}})
	assert.Equal(t, -1, actor.TalentIndex(slotted.Player.LearnedTalents, "keen"))
	assert.GreaterOrEqual(t, actor.TalentIndex(slotted.Player.LearnedTalents, "swift"), 0)
	assert.Empty(t, Validate(slotted))
}

func TestDeltaWorker_MonsterSpawns(t *testing.T) {
	gs := newTestState(GenreFantasy)
	wolf := testNPC("wolf")
	wolf.Kind = actor.KindMonster
	wolf.Location = "forest"
	wolf.Health.Current = 0
	wolf.Dead = true
	gs.Monsters = []actor.Character{wolf}

	u := &KnowledgeUpdate{Spawns: []MonsterSpawn{
		{TemplateID: "wolf", ID: "wolf_2", Location: "ridge"},
		{TemplateID: "wolf", ID: "wolf_3"},
		{TemplateID: "wolf", ID: "wolf"},
		{TemplateID: "bear", ID: "bear_1"},
	}}
	assert.False(t, u.IsEmpty())

	next := Apply(gs, ApplyKnowledgeUpdate{Update: u})
	require.Len(t, next.Monsters, 3, "taken ids and unknown templates are skipped")

	spawned := next.FindCharacter("wolf_2")
	require.NotNil(t, spawned)
	assert.Equal(t, actor.KindMonster, spawned.Kind)
	assert.Equal(t, "ridge", spawned.Location)
	assert.Equal(t, spawned.Health.Max, spawned.Health.Current)
	assert.False(t, spawned.Dead)
	assert.Equal(t, "forest", next.FindCharacter("wolf_3").Location, "location defaults to the template's")
	assert.True(t, next.FindCharacter("wolf").Dead, "template is untouched")
	assert.Empty(t, Validate(next))
}
