package edgepurge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OperationLog records purge attempts. requestID correlates rows produced by
// one purge request, such as an immediate attempt and its deferred retry.
// *oplog.Store satisfies it; a nil-safe no-op is substituted when logging is
// disabled.
type OperationLog interface {
	Record(requestID, operation string, urls []string, targetID int64, status, message string) error
}

// Log entry statuses, mirrored from oplog so the coordinator does not
// depend on the store for three string constants.
const (
	logSuccess = "success"
	logError   = "error"
	logInfo    = "info"
)

// signalDedupWindow suppresses duplicate immediate media purges for the same
// asset. One physical replacement is often observed through several
// independent hooks within moments of each other; the deferred pass still
// runs for each, which is harmless because purging is idempotent.
const signalDedupWindow = 2 * time.Second

// SaveSignal describes a content-saved event. Autosave and revision saves
// are working-copy writes that never change published URLs, so they are
// dropped at the gate.
type SaveSignal struct {
	ItemID   int64
	Autosave bool
	Revision bool
}

// Coordinator reacts to content-change signals by resolving affected URLs,
// dispatching purge requests, and recording outcomes. A failure anywhere in
// that chain is recorded and swallowed: a purge problem must never block or
// roll back the content operation that triggered it.
type Coordinator struct {
	cfg      Config
	source   ContentSource
	resolver *Resolver
	client   *Client
	oplog    OperationLog
	sched    *Scheduler

	// Notify, when set, receives a one-shot human-readable notice after each
	// successful triggered dispatch.
	Notify func(string)

	mu       sync.Mutex
	lastSeen map[int64]time.Time // asset id -> last immediate media purge
}

// NewCoordinator wires a Coordinator from explicitly constructed parts.
// opLog may be nil; combined with Config.LogOperations=false it yields a
// fully silent coordinator.
func NewCoordinator(cfg Config, source ContentSource, client *Client, opLog OperationLog, sched *Scheduler) *Coordinator {
	cfg.setDefaults()
	return &Coordinator{
		cfg:      cfg,
		source:   source,
		resolver: NewResolver(source),
		client:   client,
		oplog:    opLog,
		sched:    sched,
		lastSeen: make(map[int64]time.Time),
	}
}

// Configured reports whether provider credentials are present.
func (c *Coordinator) Configured() bool {
	return c.cfg.Credentials.Configured()
}

// record appends to the operation log, honoring the logging policy flag.
// Log write failures are reported to stderr and otherwise ignored; the log
// is observability, not control flow.
func (c *Coordinator) record(requestID string, op OperationType, urls []string, targetID int64, status, message string) {
	if !c.cfg.LogOperations || c.oplog == nil {
		return
	}
	if err := c.oplog.Record(requestID, string(op), urls, targetID, status, message); err != nil {
		log.Printf("edgepurge: record %s: %v", op, err)
	}
}

func (c *Coordinator) notice(msg string) {
	if c.Notify != nil {
		c.Notify(msg)
	}
}

func logStatus(out Outcome) string {
	switch out.Status {
	case StatusSuccess:
		return logSuccess
	case StatusEmptyTargetSet:
		return logInfo
	default:
		return logError
	}
}

// ContentSaved handles a content-saved trigger. Draft-variant saves,
// disabled policy, and unpublished items are dropped without a log entry.
func (c *Coordinator) ContentSaved(ctx context.Context, sig SaveSignal) {
	if sig.Autosave || sig.Revision {
		return
	}
	if !c.cfg.AutoPurgeOnSave {
		return
	}
	item, err := c.source.Item(sig.ItemID)
	if err != nil {
		c.record(uuid.NewString(), OpPostPurge, nil, sig.ItemID, logError, fmt.Sprintf("load item: %v", err))
		return
	}
	if !item.Published {
		return
	}
	if c.cfg.AsyncPurging {
		id := sig.ItemID
		c.sched.After(c.cfg.SavePurgeDelay, func() {
			c.purgePostImages(context.Background(), id, true)
		})
		return
	}
	c.purgePostImages(ctx, sig.ItemID, true)
}

// MediaReplaced handles an explicit media-replacement trigger. Old and new
// asset URLs are both purged when the identifiers are distinct, because
// cached pages may still reference the old asset.
func (c *Coordinator) MediaReplaced(ctx context.Context, oldID, newID int64) {
	c.MediaSignal(ctx, MediaReplaceSignal{Variant: ReplaceExplicit, OldID: oldID, NewID: newID})
}

// AttachedFileChanged handles a change of an asset's stored file path. The
// asset's previously cached URLs are purged as for a replacement, and the URL
// under the new path is purged with them in case the edge cached a miss for
// it before the move.
func (c *Coordinator) AttachedFileChanged(ctx context.Context, assetID int64, newPath string) {
	c.MediaSignal(ctx, MediaReplaceSignal{Variant: ReplaceExplicit, OldID: assetID, NewPath: newPath})
}

// MediaSignal handles a normalized media-replacement observation. Explicit
// signals are always treated as replacements; metadata-derived signals pass
// through the looksLikeReplacement heuristics first, so cosmetic metadata
// edits never trigger a purge. A confirmed replacement gets an immediate
// best-effort purge plus an unconditional deferred pass, because upstream
// variant generation may not have completed at trigger time.
func (c *Coordinator) MediaSignal(ctx context.Context, sig MediaReplaceSignal) {
	if !c.cfg.AutoPurgeOnMediaReplace {
		return
	}
	if sig.Variant != ReplaceExplicit && !looksLikeReplacement(sig.OldMeta, sig.NewMeta) {
		return
	}

	ids := []int64{sig.OldID}
	if sig.NewID != 0 && sig.NewID != sig.OldID {
		ids = append(ids, sig.NewID)
	}
	var extra []string
	if sig.NewPath != "" {
		extra = append(extra, JoinUploadURL(c.source.BaseUploadURL(), sig.NewPath))
	}

	// One request identity for both attempts, so the log rows correlate.
	requestID := uuid.NewString()
	if !c.dedupe(sig.OldID) {
		c.purgeMediaSet(ctx, requestID, OpMediaPurge, ids, extra)
	}
	c.sched.After(c.cfg.MediaPurgeDelay, func() {
		c.purgeMediaSet(context.Background(), requestID, OpMediaPurgeDelayed, ids, extra)
	})
}

// dedupe reports whether an immediate purge for the asset already ran inside
// the dedup window, and marks the asset either way.
func (c *Coordinator) dedupe(assetID int64) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastSeen[assetID]
	c.lastSeen[assetID] = now
	return ok && now.Sub(last) < signalDedupWindow
}

// purgeMediaSet resolves and purges the full variant sets of the given
// assets under one operation tag, plus any extra URLs the signal carried.
// An empty result is informational: callers always have a deferred retry
// scheduled.
func (c *Coordinator) purgeMediaSet(ctx context.Context, requestID string, op OperationType, assetIDs []int64, extra []string) {
	if !c.Configured() {
		c.record(requestID, op, nil, assetIDs[0], logError, "not configured")
		return
	}
	var urls []string
	for _, id := range assetIDs {
		resolved, err := c.resolver.MediaURLs(id)
		if err != nil {
			c.record(requestID, op, nil, id, logError, fmt.Sprintf("resolve media: %v", err))
			continue
		}
		urls = append(urls, resolved...)
	}
	urls = append(urls, extra...)
	req := NewPurgeRequestWithID(requestID, op, urls, assetIDs[0])
	if len(req.URLs) == 0 {
		c.record(req.ID, op, nil, req.TargetID, logInfo, "No URLs found to purge yet")
		return
	}
	out := c.client.Purge(ctx, req.URLs)
	c.record(req.ID, op, req.URLs, req.TargetID, logStatus(out), out.Message)
	if out.OK() {
		c.notice(out.Message)
	}
}

// purgePostImages builds and dispatches the purge set for one post: attached
// image variants and the first content image, scoped by the category flags.
// notify controls whether a success queues a user-visible notice (triggered
// paths do, the manual surface returns its outcome instead).
func (c *Coordinator) purgePostImages(ctx context.Context, itemID int64, notify bool) (Outcome, error) {
	requestID := uuid.NewString()
	if !c.Configured() {
		c.record(requestID, OpPostPurge, nil, itemID, logError, "not configured")
		return Outcome{Status: StatusNotConfigured, Message: "not configured"}, nil
	}

	var urls []string
	if c.cfg.PurgeAttachedImages {
		assetIDs, err := c.source.AttachedMedia(itemID)
		if err != nil {
			c.record(requestID, OpPostPurge, nil, itemID, logError, fmt.Sprintf("attached media: %v", err))
			return Outcome{}, fmt.Errorf("edgepurge: attached media for item %d: %w", itemID, err)
		}
		for _, id := range assetIDs {
			resolved, err := c.resolver.MediaURLs(id)
			if err != nil {
				c.record(requestID, OpPostPurge, nil, itemID, logError, fmt.Sprintf("resolve media: %v", err))
				return Outcome{}, err
			}
			urls = append(urls, resolved...)
		}
	}
	if c.cfg.PurgeContentImages {
		item, err := c.source.Item(itemID)
		if err != nil {
			c.record(requestID, OpPostPurge, nil, itemID, logError, fmt.Sprintf("load item: %v", err))
			return Outcome{}, fmt.Errorf("edgepurge: load item %d: %w", itemID, err)
		}
		if u, ok := c.resolver.FirstContentImage(item); ok {
			urls = append(urls, u)
		}
	}

	req := NewPurgeRequestWithID(requestID, OpPostPurge, urls, itemID)
	if len(req.URLs) == 0 {
		c.record(req.ID, OpPostPurge, nil, itemID, logInfo, "No images found to purge")
		return Outcome{Status: StatusEmptyTargetSet, Message: "No images found to purge"}, nil
	}

	out := c.client.Purge(ctx, req.URLs)
	c.record(req.ID, OpPostPurge, req.URLs, itemID, logStatus(out), out.Message)
	if out.OK() && notify {
		c.notice(out.Message)
	}
	return out, nil
}

// PurgePostImages is the manual "purge this post's images" operation.
// It always dispatches inline regardless of the async policy.
func (c *Coordinator) PurgePostImages(ctx context.Context, itemID int64) (Outcome, error) {
	return c.purgePostImages(ctx, itemID, false)
}

// PurgeMedia is the manual "purge this asset's variants" operation.
func (c *Coordinator) PurgeMedia(ctx context.Context, assetID int64) (Outcome, error) {
	requestID := uuid.NewString()
	if !c.Configured() {
		c.record(requestID, OpMediaPurge, nil, assetID, logError, "not configured")
		return Outcome{Status: StatusNotConfigured, Message: "not configured"}, nil
	}
	urls, err := c.resolver.MediaURLs(assetID)
	if err != nil {
		c.record(requestID, OpMediaPurge, nil, assetID, logError, fmt.Sprintf("resolve media: %v", err))
		return Outcome{}, err
	}
	req := NewPurgeRequestWithID(requestID, OpMediaPurge, urls, assetID)
	if len(req.URLs) == 0 {
		c.record(req.ID, OpMediaPurge, nil, assetID, logInfo, "No URLs found to purge yet")
		return Outcome{Status: StatusEmptyTargetSet, Message: "No URLs found to purge yet"}, nil
	}
	out := c.client.Purge(ctx, req.URLs)
	c.record(req.ID, OpMediaPurge, req.URLs, assetID, logStatus(out), out.Message)
	return out, nil
}

// PurgeURLs is the manual "purge these exact URLs" operation. Entries that
// do not parse as absolute http(s) URLs are discarded before dispatch.
func (c *Coordinator) PurgeURLs(ctx context.Context, urls []string) Outcome {
	valid := ValidURLs(urls)
	req := NewPurgeRequest(OpManualURLs, valid, 0)
	out := c.client.Purge(ctx, req.URLs)
	c.record(req.ID, OpManualURLs, req.URLs, 0, logStatus(out), out.Message)
	return out
}

// PurgeAll is the manual "purge everything in the zone" operation. The log
// row records the pseudo-URL list ["all"].
func (c *Coordinator) PurgeAll(ctx context.Context) Outcome {
	req := NewPurgeRequest(OpPurgeAll, []string{"all"}, 0)
	out := c.client.PurgeEverything(ctx)
	c.record(req.ID, OpPurgeAll, req.URLs, 0, logStatus(out), out.Message)
	return out
}

// TestConnection verifies credentials and zone reachability. It does not
// write to the operation log; callers decide whether the check is worth
// recording.
func (c *Coordinator) TestConnection(ctx context.Context) Outcome {
	return c.client.TestConnection(ctx)
}

// ListImageVariants resolves the full purge-relevant URL set of an asset
// without purging anything.
func (c *Coordinator) ListImageVariants(assetID int64) ([]string, error) {
	return c.resolver.MediaURLs(assetID)
}
