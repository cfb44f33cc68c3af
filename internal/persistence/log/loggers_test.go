package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"chronopack.game/internal/sim/dungeon"
)

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	for tick := uint64(0); tick < 5; tick++ {
		entry := dungeon.TickLogEntry{Tick: tick, Digest: "d"}
		if tick == 2 {
			entry.Jumps = []dungeon.JumpEvent{{From: 0, To: 400}}
		}
		if err := l.WriteTick(entry); err != nil {
			t.Fatalf("write %d: %v", tick, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := os.ReadDir(filepath.Join(dir, "ticks"))
	if err != nil || len(files) != 1 {
		t.Fatalf("want one log file, got %v err=%v", files, err)
	}
	name := files[0].Name()
	if !strings.HasPrefix(name, "ticks-") || !strings.HasSuffix(name, ".jsonl.zst") {
		t.Fatalf("unexpected file name %s", name)
	}

	f, err := os.Open(filepath.Join(dir, "ticks", name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []dungeon.TickLogEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e dungeon.TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("want 5 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Tick != uint64(i) {
			t.Fatalf("entry %d out of order: tick=%d", i, e.Tick)
		}
	}
	if len(got[2].Jumps) != 1 || got[2].Jumps[0].To != 400 {
		t.Fatalf("jump entry lost: %+v", got[2])
	}
}
