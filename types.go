package edgepurge

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind distinguishes the two content types the engine reacts to.
type ItemKind string

const (
	KindPost       ItemKind = "post"
	KindAttachment ItemKind = "attachment"
)

// ContentItem is a read-only view of a content item owned by the content
// source. Blocks is nil for legacy content that was never block-edited;
// Content always carries the raw markup.
type ContentItem struct {
	ID            int64
	Kind          ItemKind
	Published     bool
	Content       string
	Blocks        []ContentBlock
	AttachedMedia []int64
}

// ContentBlock is one structured block of a content item. Which fields are
// populated depends on the block: an image block referencing an uploaded
// asset carries MediaID, a block embedding an external image carries URL, and
// any block may carry rendered markup in InnerHTML.
type ContentBlock struct {
	Name      string
	MediaID   int64
	URL       string
	InnerHTML string
}

// MediaMeta holds the asset attributes compared by the replacement
// heuristics. A metadata update whose MediaMeta is unchanged (within the
// thresholds in replace.go) is treated as cosmetic.
type MediaMeta struct {
	FileSize int64
	Width    int
	Height   int
	Filename string
}

// OperationType tags a purge request with what triggered it. The values are
// stable strings because they are persisted in the operation log.
type OperationType string

const (
	OpManualURLs        OperationType = "manual_urls"
	OpPurgeAll          OperationType = "purge_all"
	OpPostPurge         OperationType = "post_purge"
	OpMediaPurge        OperationType = "media_purge"
	OpMediaPurgeDelayed OperationType = "media_purge_delayed"
)

// PurgeRequest is an immutable description of one purge attempt: what to
// purge, why, and for which item. TargetID is 0 when the request is not tied
// to a specific item or asset. URLs is already deduplicated, in first-seen
// order.
type PurgeRequest struct {
	ID        string
	Operation OperationType
	URLs      []string
	TargetID  int64
	CreatedAt time.Time
}

// NewPurgeRequest builds a request with a fresh identifier for the given
// operation, deduplicating urls and dropping empty entries while preserving
// first-seen order.
func NewPurgeRequest(op OperationType, urls []string, targetID int64) PurgeRequest {
	return NewPurgeRequestWithID(uuid.NewString(), op, urls, targetID)
}

// NewPurgeRequestWithID builds a request under a caller-supplied identifier.
// Used when several dispatch attempts for one trigger, such as an immediate
// purge and its deferred retry, must share one identity in the operation log.
func NewPurgeRequestWithID(id string, op OperationType, urls []string, targetID int64) PurgeRequest {
	return PurgeRequest{
		ID:        id,
		Operation: op,
		URLs:      uniqueNonEmpty(urls),
		TargetID:  targetID,
		CreatedAt: time.Now().UTC(),
	}
}
