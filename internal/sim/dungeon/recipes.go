package dungeon

import "chronopack.game/internal/sim/catalogs"

// heldItemIDs flattens staged entities into item ids, one per stacked
// copy, in entity order.
func heldItemIDs(held []*itemEnt) []catalogs.ItemID {
	var out []catalogs.ItemID
	for _, e := range held {
		n := e.Stack
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, e.Item)
		}
	}
	return out
}

// TryGetRecipe returns the first recipe, in table order, whose
// ingredient kinds cover every held item. The check is asymmetric:
// every held kind must appear among the recipe's ingredients, but the
// recipe may ask for kinds or quantities the player has not staged.
func TryGetRecipe(cat *catalogs.RecipeCatalog, held []catalogs.ItemID) *catalogs.RecipeDef {
	if len(held) == 0 {
		return nil
	}
	for i := range cat.Recipes {
		r := &cat.Recipes[i]
		if coversHeld(r, held) {
			return r
		}
	}
	return nil
}

func coversHeld(r *catalogs.RecipeDef, held []catalogs.ItemID) bool {
	kinds := map[catalogs.ItemID]struct{}{}
	for _, ing := range r.Ingredients {
		kinds[ing.Item] = struct{}{}
	}
	for _, id := range held {
		if _, ok := kinds[id]; !ok {
			return false
		}
	}
	return true
}
