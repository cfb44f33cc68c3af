// Command replay rebuilds a session from its tick log and verifies the
// recorded per-tick digests. A fresh session fed the same joins and
// actions must reproduce every digest exactly.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"chronopack.game/internal/sim/catalogs"
	"chronopack.game/internal/sim/dungeon"
	"chronopack.game/internal/sim/tuning"
)

func main() {
	var (
		ticksDir   = flag.String("ticks", "", "dir containing ticks-*.jsonl.zst")
		sessionID  = flag.String("session", "session_1", "session id the log was recorded under")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		fromTick   = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *ticksDir == "" {
		fmt.Fprintln(os.Stderr, "missing -ticks")
		os.Exit(2)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	starting := make([]catalogs.ItemID, 0, len(tune.StartingItems))
	for _, id := range tune.StartingItems {
		starting = append(starting, catalogs.ItemID(id))
	}
	sess, err := dungeon.New(dungeon.Config{
		ID:            *sessionID,
		TickRateHz:    tune.TickRateHz,
		MaxRounds:     tune.MaxRounds,
		StartingItems: starting,
	}, cats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session:", err)
		os.Exit(1)
	}

	files, err := listTickFiles(*ticksDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list ticks:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick files found in", *ticksDir)
		os.Exit(1)
	}

	var checked uint64
	for _, path := range files {
		if err := replayFile(sess, path, *fromTick, *toTick, &checked); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if *toTick != 0 && sess.CurrentTick() > *toTick {
			break
		}
	}
	fmt.Printf("replay ok: checked=%d ticks\n", checked)
}

func listTickFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "ticks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(sess *dungeon.Session, path string, verifyFrom, toTick uint64, checked *uint64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		var entry dungeon.TickLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if toTick != 0 && entry.Tick > toTick {
			return nil
		}
		if entry.Tick != sess.CurrentTick() {
			return fmt.Errorf("tick mismatch: want=%d got=%d (file=%s)", sess.CurrentTick(), entry.Tick, filepath.Base(path))
		}

		joins := make([]dungeon.JoinRequest, 0, len(entry.Joins))
		for _, j := range entry.Joins {
			joins = append(joins, dungeon.JoinRequest{Name: j.Name})
		}
		leaves := entry.Leaves

		acts := make([]dungeon.ActionEnvelope, 0, len(entry.Actions))
		for _, ra := range entry.Actions {
			acts = append(acts, dungeon.ActionEnvelope{ClientID: ra.ClientID, Act: ra.Act})
		}

		tick, gotDigest := sess.StepOnce(joins, leaves, acts)
		if tick != entry.Tick {
			return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d (file=%s)", tick, entry.Tick, filepath.Base(path))
		}

		if tick >= verifyFrom {
			*checked++
			if gotDigest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
			}
		}
	}
	return sc.Err()
}
