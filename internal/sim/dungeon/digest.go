package dungeon

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// stateDigest hashes all gameplay-relevant state in a fixed order so
// two sessions fed identical inputs produce identical digests tick by
// tick.
func (s *Session) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	w64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}

	w64(nowTick)
	w64(uint64(int64(s.level.Timepoints[s.curTimepointIdx].Timepoint)))
	w64(uint64(int64(s.round)))
	w64(uint64(int64(s.result)))
	w64(uint64(int64(s.combat)))
	h.Write([]byte{boolByte(s.running), boolByte(s.ended)})

	w64(uint64(len(s.backpackInUse)))
	for _, bp := range s.backpackInUse {
		w64(uint64(int64(bp)))
	}

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	w64(uint64(len(ids)))
	for _, id := range ids {
		e := s.items[id]
		h.Write([]byte(id))
		h.Write([]byte(e.Item))
		w64(uint64(int64(e.Backpack)))
		w64(uint64(int64(e.Coords.Pos.X)))
		w64(uint64(int64(e.Coords.Pos.Y)))
		w64(uint64(int64(e.Coords.Dimens.X)))
		w64(uint64(int64(e.Coords.Dimens.Y)))
		h.Write([]byte{boolByte(e.Craft)})
		w64(uint64(int64(e.Stack)))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
