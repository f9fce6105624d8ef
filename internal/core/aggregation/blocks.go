package aggregation

import (
	"sort"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// UnionBlocks returns the sorted union of existing and added byte ranges.
// Overlapping and adjacent ranges are coalesced. Empty ranges are ignored.
func UnionBlocks(existing []v1.Block, added ...v1.Block) []v1.Block {
	all := make([]v1.Block, 0, len(existing)+len(added))
	for _, b := range existing {
		if b.Size > 0 {
			all = append(all, b)
		}
	}
	for _, b := range added {
		if b.Size > 0 {
			all = append(all, b)
		}
	}
	if len(all) == 0 {
		return nil
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Offset < all[j].Offset })

	out := []v1.Block{all[0]}
	for _, b := range all[1:] {
		last := &out[len(out)-1]
		if b.Offset <= last.End() {
			if b.End() > last.End() {
				last.Size = b.End() - last.Offset
			}
			continue
		}
		out = append(out, b)
	}
	return out
}

// TrimBlocks drops every byte at or beyond size, shortening a block that straddles it.
func TrimBlocks(blocks []v1.Block, size int64) []v1.Block {
	var out []v1.Block
	for _, b := range blocks {
		if b.Offset >= size {
			continue
		}
		if b.End() > size {
			b.Size = size - b.Offset
		}
		out = append(out, b)
	}
	return out
}
