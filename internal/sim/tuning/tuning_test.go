package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTuning(t, "tick_rate_hz: 10\nmax_rounds: 3\nstarting_items:\n  - WHEAT\n")
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 10 || tu.MaxRounds != 3 {
		t.Fatalf("overrides not applied: %+v", tu)
	}
	if len(tu.StartingItems) != 1 || tu.StartingItems[0] != "WHEAT" {
		t.Fatalf("starting items: %+v", tu.StartingItems)
	}
	// Untouched keys keep defaults.
	if tu.ClientQueue != Defaults().ClientQueue {
		t.Fatalf("client queue default lost: %d", tu.ClientQueue)
	}
}

func TestLoadRejectsNonPositiveRates(t *testing.T) {
	if _, err := Load(writeTuning(t, "tick_rate_hz: 0\n")); err == nil {
		t.Fatalf("zero tick rate must fail")
	}
	if _, err := Load(writeTuning(t, "max_rounds: -1\n")); err == nil {
		t.Fatalf("negative max rounds must fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}
