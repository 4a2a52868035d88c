package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/rules-engine/pkg/actor"
	"github.com/jwebster45206/rules-engine/pkg/combat"
)

// ActionKind tags an action in an Envelope.
type ActionKind string

const (
	KindEquipItem         ActionKind = "equip_item"
	KindUnequipItem       ActionKind = "unequip_item"
	KindEquipTalent       ActionKind = "equip_talent"
	KindUnequipTalent     ActionKind = "unequip_talent"
	KindBreakthroughSkill ActionKind = "breakthrough_skill"
	KindPurchaseListing   ActionKind = "purchase_listing"
	KindCraftItem         ActionKind = "craft_item"
	KindUnlockMeridian    ActionKind = "unlock_meridian"
	KindCreateGuild       ActionKind = "create_guild"
	KindRecruitMember     ActionKind = "recruit_guild_member"
	KindUpgradeBuilding   ActionKind = "upgrade_guild_building"
	KindCollectIncome     ActionKind = "collect_guild_income"
	KindSetDiplomacy      ActionKind = "set_diplomacy"
	KindRenameEntity      ActionKind = "rename_entity"
	KindDeleteMemory      ActionKind = "delete_memory"
	KindRevertTurn        ActionKind = "revert_turn"
	KindApplyCombatResult ActionKind = "apply_combat_result"
	KindLoadState         ActionKind = "load_state"
	KindKnowledgeUpdate   ActionKind = "apply_knowledge_update"
)

var (
	ErrUnknownAction   = errors.New("unknown action kind")
	ErrMalformedAction = errors.New("malformed action payload")
)

// Action is one entry of the closed action vocabulary.
type Action interface {
	Kind() ActionKind
}

type EquipItem struct {
	CharacterID string     `json:"character_id"`
	Item        actor.Item `json:"item"`
}

type UnequipItem struct {
	CharacterID string     `json:"character_id"`
	Slot        actor.Slot `json:"slot"`
}

type EquipTalent struct {
	CharacterID string `json:"character_id"`
	SkillID     string `json:"skill_id"`
	TalentID    string `json:"talent_id"`
}

type UnequipTalent struct {
	CharacterID string `json:"character_id"`
	SkillID     string `json:"skill_id"`
	TalentID    string `json:"talent_id"`
}

// BreakthroughSkill advances a skill one mastery tier. An empty
// CharacterID means the player.
type BreakthroughSkill struct {
	CharacterID string `json:"character_id,omitempty"`
	SkillID     string `json:"skill_id"`
}

type PurchaseListing struct {
	ListingID string `json:"listing_id"`
}

type CraftItem struct {
	RecipeID string `json:"recipe_id"`
}

type UnlockMeridian struct {
	PointID string `json:"point_id"`
}

type CreateGuild struct {
	Name string `json:"name"`
}

type RecruitMember struct {
	CharacterID string `json:"character_id"`
}

type UpgradeBuilding struct {
	Building BuildingKind `json:"building"`
}

type CollectIncome struct{}

type SetDiplomacy struct {
	FactionID string          `json:"faction_id"`
	Status    DiplomacyStatus `json:"status"`
}

// RenameEntity changes the display name of the entity found under
// EntityType ("player", "npc", "monster", "companion").
type RenameEntity struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Name       string `json:"name"`
}

type DeleteMemory struct {
	MemoryID string `json:"memory_id"`
}

// RevertTurn restores History[Turn] as the live state.
type RevertTurn struct {
	Turn int `json:"turn"`
}

type ApplyCombatResult struct {
	Result combat.RoundResult `json:"result"`
}

type LoadState struct {
	State *GameState `json:"state"`
}

type ApplyKnowledgeUpdate struct {
	Update *KnowledgeUpdate `json:"update"`
}

func (EquipItem) Kind() ActionKind            { return KindEquipItem }
func (UnequipItem) Kind() ActionKind          { return KindUnequipItem }
func (EquipTalent) Kind() ActionKind          { return KindEquipTalent }
func (UnequipTalent) Kind() ActionKind        { return KindUnequipTalent }
func (BreakthroughSkill) Kind() ActionKind    { return KindBreakthroughSkill }
func (PurchaseListing) Kind() ActionKind      { return KindPurchaseListing }
func (CraftItem) Kind() ActionKind            { return KindCraftItem }
func (UnlockMeridian) Kind() ActionKind       { return KindUnlockMeridian }
func (CreateGuild) Kind() ActionKind          { return KindCreateGuild }
func (RecruitMember) Kind() ActionKind        { return KindRecruitMember }
func (UpgradeBuilding) Kind() ActionKind      { return KindUpgradeBuilding }
func (CollectIncome) Kind() ActionKind        { return KindCollectIncome }
func (SetDiplomacy) Kind() ActionKind         { return KindSetDiplomacy }
func (RenameEntity) Kind() ActionKind         { return KindRenameEntity }
func (DeleteMemory) Kind() ActionKind         { return KindDeleteMemory }
func (RevertTurn) Kind() ActionKind           { return KindRevertTurn }
func (ApplyCombatResult) Kind() ActionKind    { return KindApplyCombatResult }
func (LoadState) Kind() ActionKind            { return KindLoadState }
func (ApplyKnowledgeUpdate) Kind() ActionKind { return KindKnowledgeUpdate }

func decode[T Action](raw json.RawMessage) (Action, error) {
	var a T
	if len(raw) == 0 || string(raw) == "null" {
		return a, nil
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return a, nil
}

var decoders = map[ActionKind]func(json.RawMessage) (Action, error){
	KindEquipItem:         decode[EquipItem],
	KindUnequipItem:       decode[UnequipItem],
	KindEquipTalent:       decode[EquipTalent],
	KindUnequipTalent:     decode[UnequipTalent],
	KindBreakthroughSkill: decode[BreakthroughSkill],
	KindPurchaseListing:   decode[PurchaseListing],
	KindCraftItem:         decode[CraftItem],
	KindUnlockMeridian:    decode[UnlockMeridian],
	KindCreateGuild:       decode[CreateGuild],
	KindRecruitMember:     decode[RecruitMember],
	KindUpgradeBuilding:   decode[UpgradeBuilding],
	KindCollectIncome:     decode[CollectIncome],
	KindSetDiplomacy:      decode[SetDiplomacy],
	KindRenameEntity:      decode[RenameEntity],
	KindDeleteMemory:      decode[DeleteMemory],
	KindRevertTurn:        decode[RevertTurn],
	KindApplyCombatResult: decode[ApplyCombatResult],
	KindLoadState:         decode[LoadState],
	KindKnowledgeUpdate:   decode[ApplyKnowledgeUpdate],
}

// Envelope is the wire form of an action.
type Envelope struct {
	Kind    ActionKind      `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a for transport.
func NewEnvelope(a Action) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", a.Kind(), err)
	}
	return Envelope{Kind: a.Kind(), Payload: payload}, nil
}

// Decode resolves the envelope into a typed action.
func (e Envelope) Decode() (Action, error) {
	dec, ok := decoders[e.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, e.Kind)
	}
	a, err := dec(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedAction, e.Kind, err)
	}
	return a, nil
}
