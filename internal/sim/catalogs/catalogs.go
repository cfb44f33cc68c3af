// Package catalogs loads the static item/recipe/layout tables. All
// catalogs are read-only after Load; the sim never mutates them.
package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"chronopack.game/internal/sim/grid"
)

// ItemID identifies an item kind. Gameplay identity is by id, never by
// entity instance.
type ItemID string

// Raw resources.
const (
	Wheat ItemID = "WHEAT"
	Meat  ItemID = "MEAT"
	Fish  ItemID = "FISH"

	Alcohol ItemID = "ALCOHOL"
)

// Tool tiers.
const (
	StoneTool            ItemID = "STONE_TOOL"
	BronzeTool           ItemID = "BRONZE_TOOL"
	IronTool             ItemID = "IRON_TOOL"
	SteelTool            ItemID = "STEEL_TOOL"
	SteamPower           ItemID = "STEAM_POWER"
	ElectronicTechnology ItemID = "ELECTRONIC_TECHNOLOGY"
)

// Social and political techs.
const (
	Chiefdom            ItemID = "CHIEFDOM"
	Religion            ItemID = "RELIGION"
	Theocracy           ItemID = "THEOCRACY"
	Feudal              ItemID = "FEUDAL"
	Monarchy            ItemID = "MONARCHY"
	Empire              ItemID = "EMPIRE"
	Centralization      ItemID = "CENTRALIZATION"
	Totalitarian        ItemID = "TOTALITARIAN"
	Democracy           ItemID = "DEMOCRACY"
	PermanentMember     ItemID = "PERMANENT_MEMBER"
	Writing             ItemID = "WRITING"
	Book                ItemID = "BOOK"
	Printing            ItemID = "PRINTING"
	Currency            ItemID = "CURRENCY"
	GatheringAndHunting ItemID = "GATHERING_AND_HUNTING"
	Fishery             ItemID = "FISHERY"
	Trading             ItemID = "TRADING"
	Industrialization   ItemID = "INDUSTRIALIZATION"
)

type Catalogs struct {
	Items   ItemCatalog
	Recipes RecipeCatalog
	Layout  LayoutCatalog
}

type ItemCatalog struct {
	Palette []ItemID
	Defs    map[ItemID]ItemDef
	Digest  string
}

type ItemDef struct {
	ID        ItemID `json:"id"`
	Name      string `json:"name"`
	TextureID string `json:"texture_id"`
	Dimens    [2]int `json:"dimens"`
}

// FootprintDimens is the grid footprint of the item.
func (d ItemDef) FootprintDimens() grid.Dimens {
	return grid.Dimens{X: d.Dimens[0], Y: d.Dimens[1]}
}

type RecipeCatalog struct {
	// Recipes keeps table order: the matcher returns the first match.
	Recipes []RecipeDef
	ByID    map[string]RecipeDef
	Digest  string
}

type RecipeDef struct {
	RecipeID    string      `json:"recipe_id"`
	Name        string      `json:"name"`
	Ingredients []ItemCount `json:"ingredients"`
	Output      ItemCount   `json:"output"`
}

type ItemCount struct {
	Item  ItemID `json:"item"`
	Count int    `json:"count"`
}

type LayoutCatalog struct {
	Grid   grid.Data
	Digest string
}

// UnknownItemError reports an ItemID with no items.json entry. The
// original engine silently substituted a default item here; callers now
// have to handle (and log) the miss explicitly.
type UnknownItemError struct {
	ID ItemID
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown item id: %s", e.ID)
}

// Get resolves an item definition or returns *UnknownItemError.
func (c *ItemCatalog) Get(id ItemID) (ItemDef, error) {
	d, ok := c.Defs[id]
	if !ok {
		return ItemDef{}, &UnknownItemError{ID: id}
	}
	return d, nil
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadLayout(filepath.Join(configDir, "layout.json"), &c.Layout); err != nil {
		return nil, err
	}

	// Recipes may only reference defined items.
	for _, r := range c.Recipes.Recipes {
		for _, ing := range r.Ingredients {
			if _, ok := c.Items.Defs[ing.Item]; !ok {
				return nil, fmt.Errorf("recipes.json: recipe %s: %w", r.RecipeID, &UnknownItemError{ID: ing.Item})
			}
		}
		if _, ok := c.Items.Defs[r.Output.Item]; !ok {
			return nil, fmt.Errorf("recipes.json: recipe %s: %w", r.RecipeID, &UnknownItemError{ID: r.Output.Item})
		}
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema("items.json", itemsSchema, raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[ItemID]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		if d.Dimens[0] <= 0 || d.Dimens[1] <= 0 {
			return fmt.Errorf("items.json: %s: non-positive dimens", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]ItemID, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out.Palette = ids
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema("recipes.json", recipesSchema, raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.Recipes = defs
	out.ByID = map[string]RecipeDef{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %s", r.RecipeID)
		}
		out.ByID[r.RecipeID] = r
	}
	return nil
}

func loadLayout(path string, out *LayoutCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validateSchema("layout.json", layoutSchema, raw); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Grid); err != nil {
		return fmt.Errorf("layout.json: %w", err)
	}
	if out.Grid.Inventory.Dimens.X <= 0 || out.Grid.Inventory.Dimens.Y <= 0 {
		return fmt.Errorf("layout.json: non-positive inventory dimens")
	}
	return nil
}
