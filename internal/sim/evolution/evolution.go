// Package evolution implements the tech-tree recomputation that runs
// when the player jumps forward in time. Evolve is a pure function of
// the contributed item multiset; it never reads its own output, so rule
// order only fixes the emission order.
package evolution

import "chronopack.game/internal/sim/catalogs"

// ItemCount is one emitted (item kind, quantity) pair.
type ItemCount struct {
	Item  catalogs.ItemID
	Count int
}

// Tool tiers from highest to lowest; only the highest tier present
// contributes its points, never a sum.
var toolTiers = []struct {
	ID     catalogs.ItemID
	Points int
}{
	{catalogs.ElectronicTechnology, 6},
	{catalogs.SteamPower, 5},
	{catalogs.SteelTool, 4},
	{catalogs.IronTool, 3},
	{catalogs.BronzeTool, 2},
	{catalogs.StoneTool, 1},
}

// Population weights per food item.
const (
	wheatPopulation = 200
	meatPopulation  = 400
	fishPopulation  = 300
)

// ToolPoints returns the point value of the highest tool tier present.
func ToolPoints(counts map[catalogs.ItemID]int) int {
	for _, t := range toolTiers {
		if counts[t.ID] > 0 {
			return t.Points
		}
	}
	return 0
}

// Population derives the population figure gating the social unlocks.
func Population(counts map[catalogs.ItemID]int) int {
	return counts[catalogs.Wheat]*wheatPopulation +
		counts[catalogs.Meat]*meatPopulation +
		counts[catalogs.Fish]*fishPopulation
}

// increaseOrUnlock is the shape shared by every rule: an item already
// present grows by add; an absent item appears as a single copy when its
// unlock condition holds.
func increaseOrUnlock(current, add int, unlock bool) int {
	if current > 0 {
		return current + add
	}
	if unlock {
		return 1
	}
	return 0
}

// Evolve computes the item multiset that replaces the destination
// backpack's contents after a forward jump. Every rule reads the
// original contributed counts, never the in-progress output. Kinds that
// compute to zero are omitted rather than emitted as removals.
func Evolve(contributed []catalogs.ItemID) []ItemCount {
	c := map[catalogs.ItemID]int{}
	for _, id := range contributed {
		c[id]++
	}

	toolPoints := ToolPoints(c)
	population := Population(c)

	out := make([]ItemCount, 0, 28)
	rule := func(id catalogs.ItemID, add int, unlock bool) {
		out = append(out, ItemCount{Item: id, Count: increaseOrUnlock(c[id], add, unlock)})
	}

	// Resources.
	rule(catalogs.Wheat, toolPoints, true)
	rule(catalogs.Alcohol, c[catalogs.Wheat]/3, c[catalogs.Wheat] > 2)
	rule(catalogs.Meat, toolPoints, c[catalogs.GatheringAndHunting] > 0)
	rule(catalogs.Fish, toolPoints, c[catalogs.Fishery] > 0)

	// Tool chain. The steel and steam deltas are value-level bitwise ORs
	// of other tech counts, not boolean logic; keep them exactly so.
	rule(catalogs.StoneTool, c[catalogs.Chiefdom], false)
	rule(catalogs.BronzeTool, c[catalogs.Religion], c[catalogs.StoneTool] > 1)
	rule(catalogs.IronTool, c[catalogs.Feudal], c[catalogs.BronzeTool] > 2)
	rule(catalogs.SteelTool,
		c[catalogs.Democracy]|c[catalogs.Centralization],
		c[catalogs.IronTool] > 3)
	rule(catalogs.SteamPower,
		c[catalogs.Theocracy]|c[catalogs.Empire]|c[catalogs.Totalitarian]|c[catalogs.PermanentMember],
		c[catalogs.SteelTool] > 5)
	rule(catalogs.ElectronicTechnology, 0, c[catalogs.SteamPower] > 5)

	// Social chain.
	rule(catalogs.Chiefdom, c[catalogs.Wheat]/3, c[catalogs.Wheat] > 2)
	rule(catalogs.Religion, 0,
		c[catalogs.Alcohol] > 0 && c[catalogs.Fish] > 0 && c[catalogs.Meat] > 0)
	rule(catalogs.Theocracy, 0,
		c[catalogs.Religion] > 1 && c[catalogs.Book] > 1 && population > 2000)
	rule(catalogs.Feudal, 0,
		c[catalogs.Chiefdom] > 0 && c[catalogs.Writing] > 0 && population > 1000)
	rule(catalogs.Monarchy, c[catalogs.Chiefdom]/5,
		c[catalogs.Chiefdom] > 1 && population > 2000)
	rule(catalogs.Empire, 0,
		(c[catalogs.Monarchy] > 1 && c[catalogs.Centralization] > 0 &&
			c[catalogs.Book] > 0 && population > 2000) || population == 500)
	rule(catalogs.Centralization, 0,
		c[catalogs.Monarchy] > 1 && population > 3000)
	rule(catalogs.Totalitarian, 0,
		c[catalogs.Centralization] > 0 && c[catalogs.Printing] > 0 &&
			c[catalogs.SteamPower] > 0 && population > 2000)
	rule(catalogs.Democracy, 0,
		c[catalogs.Trading] > 0 && c[catalogs.Book] > 0 && c[catalogs.Wheat] > 1)
	rule(catalogs.PermanentMember, 0,
		c[catalogs.Democracy] > 0 && c[catalogs.Trading] > 2 && population > 2000)

	// Knowledge chain.
	rule(catalogs.Writing, c[catalogs.StoneTool],
		c[catalogs.Religion] > 0 && c[catalogs.StoneTool] > 0)
	rule(catalogs.Book, c[catalogs.BronzeTool],
		c[catalogs.Monarchy] > 0 && c[catalogs.BronzeTool] > 0)
	rule(catalogs.Printing, c[catalogs.IronTool],
		c[catalogs.Monarchy] > 0 && c[catalogs.IronTool] > 0)

	rule(catalogs.Currency, c[catalogs.BronzeTool],
		c[catalogs.Feudal] > 0 && c[catalogs.BronzeTool] > 0)
	rule(catalogs.GatheringAndHunting, 0, false)
	rule(catalogs.Fishery, 0, false)
	rule(catalogs.Trading, 0,
		c[catalogs.Monarchy] > 0 && c[catalogs.Currency] > 4)
	rule(catalogs.Industrialization, 0, c[catalogs.SteamPower] > 4)

	filtered := out[:0]
	for _, ic := range out {
		if ic.Count != 0 {
			filtered = append(filtered, ic)
		}
	}
	return filtered
}
