package dungeon

import (
	"testing"

	"chronopack.game/internal/sim/catalogs"
)

func recipeTable() *catalogs.RecipeCatalog {
	return &catalogs.RecipeCatalog{
		Recipes: []catalogs.RecipeDef{
			{
				RecipeID:    "stone_only",
				Ingredients: []catalogs.ItemCount{{Item: catalogs.StoneTool, Count: 1}},
				Output:      catalogs.ItemCount{Item: catalogs.BronzeTool, Count: 1},
			},
			{
				RecipeID: "stone_and_wheat",
				Ingredients: []catalogs.ItemCount{
					{Item: catalogs.StoneTool, Count: 1},
					{Item: catalogs.Wheat, Count: 2},
				},
				Output: catalogs.ItemCount{Item: catalogs.Currency, Count: 1},
			},
		},
	}
}

func TestTryGetRecipeRejectsExtraKinds(t *testing.T) {
	cat := recipeTable()
	// BronzeTool is not in any recipe's ingredient set, so holding it
	// disqualifies every recipe.
	got := TryGetRecipe(cat, []catalogs.ItemID{catalogs.StoneTool, catalogs.BronzeTool})
	if got != nil {
		t.Fatalf("extra held kind must not match, got %s", got.RecipeID)
	}
}

func TestTryGetRecipeFirstTableMatchWins(t *testing.T) {
	cat := recipeTable()
	got := TryGetRecipe(cat, []catalogs.ItemID{catalogs.StoneTool})
	if got == nil || got.RecipeID != "stone_only" {
		t.Fatalf("want stone_only, got %+v", got)
	}
}

func TestTryGetRecipeIgnoresQuantities(t *testing.T) {
	cat := recipeTable()
	// One wheat is fewer than the recipe asks for; the matcher only
	// checks kinds, never quantity sufficiency.
	got := TryGetRecipe(cat, []catalogs.ItemID{catalogs.Wheat, catalogs.StoneTool})
	if got == nil || got.RecipeID != "stone_and_wheat" {
		t.Fatalf("want stone_and_wheat, got %+v", got)
	}
}

func TestTryGetRecipeEmptyHeld(t *testing.T) {
	if got := TryGetRecipe(recipeTable(), nil); got != nil {
		t.Fatalf("empty held must not match, got %s", got.RecipeID)
	}
}

func TestHeldItemIDsExpandStacks(t *testing.T) {
	held := []*itemEnt{
		{Item: catalogs.Wheat, Stack: 3},
		{Item: catalogs.StoneTool, Stack: 1},
	}
	ids := heldItemIDs(held)
	if len(ids) != 4 {
		t.Fatalf("want 4 ids, got %v", ids)
	}
	if ids[0] != catalogs.Wheat || ids[3] != catalogs.StoneTool {
		t.Fatalf("order wrong: %v", ids)
	}
}
