package state

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// cleanName trims and NFC-normalises a player-supplied name.
func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func requireGuild(gs *GameState) (*Guild, *Rejection) {
	if rej := requireCapability(gs, CapGuilds); rej != nil {
		return nil, rej
	}
	if gs.Guild == nil {
		return nil, reject(RejectNotFound, "no guild has been founded")
	}
	return gs.Guild, nil
}

func createGuild(gs *GameState, a CreateGuild) *Rejection {
	if rej := requireCapability(gs, CapGuilds); rej != nil {
		return rej
	}
	name := cleanName(a.Name)
	if name == "" {
		return reject(RejectMalformed, "guild name is required")
	}
	player, rej := requirePlayer(gs)
	if rej != nil {
		return rej
	}
	if gs.Guild != nil {
		return reject(RejectPrecondition, "guild %s already exists", gs.Guild.Name)
	}
	if player.GuildID != "" {
		return reject(RejectPrecondition, "%s already belongs to guild %s", player.ID, player.GuildID)
	}

	// Same session and name always yield the same guild id.
	id := uuid.NewSHA1(gs.ID, []byte("guild:"+name)).String()
	gs.Guild = NewGuild(id, name, player.ID)
	player.GuildID = id
	player.Sect = nil
	return nil
}

func recruitMember(gs *GameState, a RecruitMember) *Rejection {
	guild, rej := requireGuild(gs)
	if rej != nil {
		return rej
	}
	if rej := requireField("character_id", a.CharacterID); rej != nil {
		return rej
	}
	idx := indexByID(gs.NPCs, a.CharacterID)
	if idx < 0 {
		return reject(RejectNotFound, "npc %s not found", a.CharacterID)
	}
	npc := &gs.NPCs[idx]

	switch {
	case guild.IsMember(npc.ID):
		return reject(RejectPrecondition, "%s is already a member", npc.ID)
	case !npc.Alive():
		return reject(RejectPrecondition, "%s is dead", npc.ID)
	case npc.GuildID != "":
		return reject(RejectPrecondition, "%s belongs to guild %s", npc.ID, npc.GuildID)
	case npc.Sect != nil:
		return reject(RejectPrecondition, "%s belongs to sect %s", npc.ID, npc.Sect.SectID)
	case npc.Hostile():
		return reject(RejectPrecondition, "%s is hostile", npc.ID)
	case len(guild.Members) >= guild.MaxMembers:
		return reject(RejectCapacity, "guild is full at %d members", guild.MaxMembers)
	}

	guild.Members = append(guild.Members, npc.ID)
	npc.GuildID = guild.ID
	return nil
}

func upgradeBuilding(gs *GameState, a UpgradeBuilding) *Rejection {
	guild, rej := requireGuild(gs)
	if rej != nil {
		return rej
	}
	level, ok := guild.Buildings[a.Building]
	if !ok {
		return reject(RejectNotFound, "guild has no building %q", a.Building)
	}
	up, ok := NextUpgrade(a.Building, level)
	if !ok {
		return reject(RejectPrecondition, "%s is at its maximum level %d", a.Building, level)
	}
	if !guild.Resources.Covers(up.Cost) {
		return reject(RejectInsufficient, "%s level %d needs %+v, have %+v", a.Building, level+1, up.Cost, guild.Resources)
	}

	guild.Resources = guild.Resources.Sub(up.Cost)
	guild.Buildings[a.Building] = level + 1
	guild.MaxMembers += up.Members
	guild.Income = guild.Income.Add(up.Income)
	if len(up.Stats) > 0 {
		if owner := gs.FindCharacter(guild.OwnerID); owner != nil {
			owner.AddBaseStats(up.Stats)
		}
	}
	return nil
}

func collectIncome(gs *GameState) *Rejection {
	guild, rej := requireGuild(gs)
	if rej != nil {
		return rej
	}
	if guild.Income.IsZero() {
		return reject(RejectPrecondition, "guild has no income")
	}
	guild.Resources = guild.Resources.Add(guild.Income)
	return nil
}

func setDiplomacy(gs *GameState, a SetDiplomacy) *Rejection {
	guild, rej := requireGuild(gs)
	if rej != nil {
		return rej
	}
	if rej := requireField("faction_id", a.FactionID); rej != nil {
		return rej
	}
	if !a.Status.Valid() {
		return reject(RejectMalformed, "unknown diplomacy status %q", a.Status)
	}
	guild.SetRelation(a.FactionID, a.Status)
	return nil
}
