package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", dir)
		}
		dir = parent
	}
}

func TestLoadShippedConfigs(t *testing.T) {
	root := findRepoRoot(t)
	cats, err := Load(filepath.Join(root, "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cats.Items.Defs) != 28 {
		t.Fatalf("items: got %d defs want 28", len(cats.Items.Defs))
	}
	if cats.Items.Digest == "" || cats.Recipes.Digest == "" || cats.Layout.Digest == "" {
		t.Fatalf("missing digests: %+v", []string{cats.Items.Digest, cats.Recipes.Digest, cats.Layout.Digest})
	}
	if len(cats.Items.Palette) != len(cats.Items.Defs) {
		t.Fatalf("palette/defs mismatch: %d vs %d", len(cats.Items.Palette), len(cats.Items.Defs))
	}
	if cats.Layout.Grid.Inventory.Dimens.X <= 0 {
		t.Fatalf("layout inventory missing: %+v", cats.Layout.Grid)
	}
	for _, id := range []ItemID{Wheat, ElectronicTechnology, PermanentMember, GatheringAndHunting} {
		if _, err := cats.Items.Get(id); err != nil {
			t.Fatalf("expected def for %s: %v", id, err)
		}
	}
}

func TestGetUnknownItem(t *testing.T) {
	c := ItemCatalog{Defs: map[ItemID]ItemDef{Wheat: {ID: Wheat}}}
	_, err := c.Get("NO_SUCH_ITEM")
	var unknown *UnknownItemError
	if !errors.As(err, &unknown) {
		t.Fatalf("want *UnknownItemError, got %v", err)
	}
	if unknown.ID != "NO_SUCH_ITEM" {
		t.Fatalf("error carries wrong id: %s", unknown.ID)
	}
}

func writeConfigs(t *testing.T, items, recipes, layout string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"items.json":   items,
		"recipes.json": recipes,
		"layout.json":  layout,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

const validLayout = `{"inventory":{"pos":{"x":0,"y":0},"dimens":{"x":4,"y":3}},"crafting":{"pos":{"x":5,"y":0},"dimens":{"x":2,"y":2}},"cell_size":64}`

func TestLoadRejectsBadSchema(t *testing.T) {
	dir := writeConfigs(t,
		`[{"id":"WHEAT","name":"Wheat","texture_id":"wheat","dimens":[0,1]}]`,
		`[]`,
		validLayout,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("zero dimens must fail schema validation")
	}
}

func TestLoadRejectsDuplicateItem(t *testing.T) {
	dir := writeConfigs(t,
		`[{"id":"WHEAT","name":"Wheat","texture_id":"wheat","dimens":[1,1]},
		  {"id":"WHEAT","name":"Wheat2","texture_id":"wheat","dimens":[1,1]}]`,
		`[]`,
		validLayout,
	)
	if _, err := Load(dir); err == nil {
		t.Fatalf("duplicate item id must fail")
	}
}

func TestLoadRejectsRecipeWithUnknownItem(t *testing.T) {
	dir := writeConfigs(t,
		`[{"id":"WHEAT","name":"Wheat","texture_id":"wheat","dimens":[1,1]}]`,
		`[{"recipe_id":"r1","name":"R1","ingredients":[{"item":"MYSTERY","count":1}],"output":{"item":"WHEAT","count":1}}]`,
		validLayout,
	)
	_, err := Load(dir)
	var unknown *UnknownItemError
	if !errors.As(err, &unknown) {
		t.Fatalf("want *UnknownItemError, got %v", err)
	}
}

func TestLoadKeepsRecipeTableOrder(t *testing.T) {
	dir := writeConfigs(t,
		`[{"id":"WHEAT","name":"Wheat","texture_id":"wheat","dimens":[1,1]}]`,
		`[{"recipe_id":"b","name":"B","ingredients":[{"item":"WHEAT","count":1}],"output":{"item":"WHEAT","count":1}},
		  {"recipe_id":"a","name":"A","ingredients":[{"item":"WHEAT","count":2}],"output":{"item":"WHEAT","count":1}}]`,
		validLayout,
	)
	cats, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cats.Recipes.Recipes[0].RecipeID != "b" || cats.Recipes.Recipes[1].RecipeID != "a" {
		t.Fatalf("table order lost: %+v", cats.Recipes.Recipes)
	}
}
