package state

import (
	"github.com/jwebster45206/rules-engine/pkg/actor"
)

// wallet returns a pointer to the balance the genre's store charges.
func wallet(gs *GameState, player *actor.Character) (*int, *Rejection) {
	cur, ok := gs.Genre.StoreCurrency()
	if !ok {
		return nil, reject(RejectGenre, "%s games have no store", gs.Genre.normalized())
	}
	switch cur {
	case CurrencyContribution:
		if player.Sect == nil {
			return nil, reject(RejectPrecondition, "%s belongs to no sect", player.ID)
		}
		return &player.Sect.Contribution, nil
	case CurrencyIntervention:
		return &player.InterventionPoints, nil
	}
	return nil, reject(RejectGenre, "unsupported currency %s", cur)
}

func purchaseListing(gs *GameState, a PurchaseListing) *Rejection {
	if rej := requireCapability(gs, CapStore); rej != nil {
		return rej
	}
	if rej := requireField("listing_id", a.ListingID); rej != nil {
		return rej
	}
	player, rej := requirePlayer(gs)
	if rej != nil {
		return rej
	}
	idx := findByID(gs.Store, a.ListingID, func(l StoreListing) string { return l.ID })
	if idx < 0 {
		return reject(RejectNotFound, "listing %s not found", a.ListingID)
	}
	listing := gs.Store[idx]
	if listing.Price < 0 {
		return reject(RejectMalformed, "listing %s has a negative price", listing.ID)
	}

	balance, rej := wallet(gs, player)
	if rej != nil {
		return rej
	}
	if *balance < listing.Price {
		return reject(RejectInsufficient, "%s costs %d, have %d", listing.ID, listing.Price, *balance)
	}

	switch listing.Kind {
	case ListingSkill:
		if listing.Skill == nil {
			return reject(RejectMalformed, "listing %s has no skill", listing.ID)
		}
		if player.SkillIndex(listing.Skill.ID) >= 0 {
			return reject(RejectPrecondition, "%s already knows %s", player.ID, listing.Skill.ID)
		}
		player.Skills = append(player.Skills, listing.Skill.Clone())
	case ListingItem:
		if listing.Item == nil {
			return reject(RejectMalformed, "listing %s has no item", listing.ID)
		}
		player.Inventory = actor.AddItem(player.Inventory, *listing.Item)
	default:
		return reject(RejectMalformed, "listing %s has unknown kind %q", listing.ID, listing.Kind)
	}

	*balance -= listing.Price
	return nil
}

func craftItem(gs *GameState, a CraftItem) *Rejection {
	if rej := requireCapability(gs, CapCrafting); rej != nil {
		return rej
	}
	if rej := requireField("recipe_id", a.RecipeID); rej != nil {
		return rej
	}
	player, rej := requirePlayer(gs)
	if rej != nil {
		return rej
	}
	idx := findByID(gs.Recipes, a.RecipeID, func(r Recipe) string { return r.ID })
	if idx < 0 {
		return reject(RejectNotFound, "recipe %s not found", a.RecipeID)
	}
	recipe := gs.Recipes[idx]
	if len(recipe.Materials) == 0 {
		return reject(RejectMalformed, "recipe %s has no materials", recipe.ID)
	}

	required := make(map[string]int, len(recipe.Materials))
	for _, m := range recipe.Materials {
		if m.Name == "" || m.Quantity <= 0 {
			return reject(RejectMalformed, "recipe %s has an invalid material", recipe.ID)
		}
		required[m.Name] += m.Quantity
	}

	for name, qty := range required {
		if held := actor.CountItem(player.Inventory, name); held < qty {
			return reject(RejectInsufficient, "%s needs %d %s, have %d", recipe.ID, qty, name, held)
		}
	}

	// Runs on the working copy, so a failed removal discards every earlier one too.
	for name, qty := range required {
		var ok bool
		if player.Inventory, ok = actor.RemoveItem(player.Inventory, name, qty); !ok {
			return reject(RejectInsufficient, "%s could not consume %d %s", recipe.ID, qty, name)
		}
	}
	player.Inventory = actor.AddItem(player.Inventory, recipe.Output)
	return nil
}
