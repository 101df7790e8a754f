package layer

import "time"

// Merge applies layers in the given order. For every key present in a later
// layer, its entry replaces the earlier one entirely. Provenance of each
// entry is kept, so the result records which layer supplied every key.
//
// Merge is associative: Merge(a, b, c) and Merge(Merge(a, b), c) yield the
// same entries.
func Merge(layers ...*Layer) *Layer {
	out := NewLayer(SourceMerged.LayerName(), SourceMerged, 0)
	out.ModTime = time.Time{}
	for _, l := range layers {
		if l == nil {
			continue
		}
		for k, e := range l.Entries {
			out.Entries[k] = e
		}
		if l.ModTime.After(out.ModTime) {
			out.ModTime = l.ModTime
		}
	}
	return out
}
