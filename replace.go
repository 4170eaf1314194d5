package edgepurge

// ReplaceVariant names the hook a media-replacement observation came from.
// Several independent source hooks can fire for one conceptual replacement;
// the adapter layer normalizes them all into a MediaReplaceSignal so the
// coordinator handles one shape.
type ReplaceVariant string

const (
	// ReplaceExplicit is a direct "this file was swapped" signal.
	ReplaceExplicit ReplaceVariant = "explicit_replace"
	// ReplaceMetadataUpdate is a generic metadata-change signal that may or
	// may not indicate a file swap.
	ReplaceMetadataUpdate ReplaceVariant = "metadata_update"
	// ReplacePostMetaChange is a generic post-meta-update signal, weakest of
	// the three.
	ReplacePostMetaChange ReplaceVariant = "post_meta_change"
)

// MediaReplaceSignal is the normalized form of a media-replacement
// observation. NewID is 0 when the signal names only one asset. OldMeta and
// NewMeta are zero values for explicit signals, which need no heuristics.
// NewPath, when set, is the asset's relative file path after a move; the URL
// under it is purged alongside the old variant set.
type MediaReplaceSignal struct {
	Variant ReplaceVariant
	OldID   int64
	NewID   int64
	OldMeta MediaMeta
	NewMeta MediaMeta
	NewPath string
}

// replaceSizeDeltaBytes is the file-size change below which a metadata
// update is considered cosmetic (regenerated metadata, EXIF edits) rather
// than a file swap.
const replaceSizeDeltaBytes = 1000

// looksLikeReplacement reports whether a metadata update indicates an actual
// file swap rather than a cosmetic edit: a file-size delta over the
// threshold, a dimension change, or a stored filename change.
func looksLikeReplacement(old, new MediaMeta) bool {
	delta := new.FileSize - old.FileSize
	if delta < 0 {
		delta = -delta
	}
	if delta > replaceSizeDeltaBytes {
		return true
	}
	if old.Width != new.Width || old.Height != new.Height {
		return true
	}
	if old.Filename != "" && new.Filename != "" && old.Filename != new.Filename {
		return true
	}
	return false
}
