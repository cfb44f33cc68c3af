package evolution

import (
	"reflect"
	"testing"

	"chronopack.game/internal/sim/catalogs"
)

func TestToolPointsHighestTierOnly(t *testing.T) {
	counts := map[catalogs.ItemID]int{
		catalogs.StoneTool:  3,
		catalogs.SteamPower: 1,
	}
	if got := ToolPoints(counts); got != 5 {
		t.Fatalf("highest tier must win: got %d want 5", got)
	}
	if got := ToolPoints(map[catalogs.ItemID]int{}); got != 0 {
		t.Fatalf("no tools: got %d want 0", got)
	}
}

func TestPopulationWeights(t *testing.T) {
	counts := map[catalogs.ItemID]int{
		catalogs.Wheat: 1,
		catalogs.Meat:  1,
		catalogs.Fish:  1,
	}
	if got := Population(counts); got != 900 {
		t.Fatalf("population: got %d want 900", got)
	}
}

func TestEvolveStoneToolOnly(t *testing.T) {
	got := Evolve([]catalogs.ItemID{catalogs.StoneTool})
	want := []ItemCount{
		{Item: catalogs.Wheat, Count: 1},
		{Item: catalogs.StoneTool, Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEvolveWheatChain(t *testing.T) {
	got := Evolve([]catalogs.ItemID{
		catalogs.Wheat, catalogs.Wheat, catalogs.Wheat, catalogs.Alcohol,
	})
	want := []ItemCount{
		{Item: catalogs.Wheat, Count: 3},
		{Item: catalogs.Alcohol, Count: 2},
		{Item: catalogs.Chiefdom, Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEvolveEmpireAtExactPopulation(t *testing.T) {
	// 1 wheat + 1 fish is exactly population 500, the alternate Empire
	// unlock.
	got := Evolve([]catalogs.ItemID{catalogs.Wheat, catalogs.Fish})
	want := []ItemCount{
		{Item: catalogs.Wheat, Count: 1},
		{Item: catalogs.Fish, Count: 1},
		{Item: catalogs.Empire, Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestEvolveSteelToolBitwiseDelta(t *testing.T) {
	contributed := []catalogs.ItemID{
		catalogs.SteelTool,
		catalogs.Democracy, catalogs.Democracy,
		catalogs.Centralization,
	}
	got := Evolve(contributed)
	// delta = count(Democracy) | count(Centralization) = 2|1 = 3.
	found := false
	for _, ic := range got {
		if ic.Item == catalogs.SteelTool {
			found = true
			if ic.Count != 4 {
				t.Fatalf("steel tool: got %d want 4", ic.Count)
			}
		}
	}
	if !found {
		t.Fatalf("steel tool missing from %v", got)
	}
}

func TestEvolveDeterministicAndIdempotent(t *testing.T) {
	contributed := []catalogs.ItemID{
		catalogs.Wheat, catalogs.Wheat, catalogs.Wheat,
		catalogs.StoneTool, catalogs.StoneTool,
		catalogs.Alcohol, catalogs.Meat, catalogs.Fish,
		catalogs.GatheringAndHunting,
	}
	first := Evolve(contributed)
	second := Evolve(contributed)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("evolve is not deterministic: %v vs %v", first, second)
	}
}

func TestEvolveOmitsZeroCounts(t *testing.T) {
	inputs := [][]catalogs.ItemID{
		nil,
		{catalogs.StoneTool},
		{catalogs.Wheat, catalogs.Wheat, catalogs.Wheat, catalogs.Alcohol},
		{catalogs.SteamPower, catalogs.SteamPower, catalogs.SteamPower,
			catalogs.SteamPower, catalogs.SteamPower, catalogs.SteamPower},
	}
	for _, in := range inputs {
		for _, ic := range Evolve(in) {
			if ic.Count == 0 {
				t.Fatalf("zero count emitted for %s (input %v)", ic.Item, in)
			}
		}
	}
}

func TestEvolveEmptyContributionStillUnlocksWheat(t *testing.T) {
	got := Evolve(nil)
	want := []ItemCount{{Item: catalogs.Wheat, Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
