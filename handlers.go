package edgepurge

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/edgepurge/oplog"
)

// opResult is the JSON shape returned by manual operations.
type opResult struct {
	Success bool   `json:"success"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func resultOf(out Outcome) opResult {
	return opResult{Success: out.OK(), Status: out.Status, Message: out.Message}
}

type contentSavedPayload struct {
	ItemID   int64 `json:"item_id"`
	Autosave bool  `json:"autosave"`
	Revision bool  `json:"revision"`
}

// Hook handlers always answer 202: purge failures are visible in the
// operation log only and must never bounce back into the content source's
// save path.
func (a *App) handleContentSaved(c echo.Context) error {
	var p contentSavedPayload
	if err := c.Bind(&p); err != nil || p.ItemID == 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "item_id is required"})
	}
	a.Coordinator.ContentSaved(c.Request().Context(), SaveSignal{
		ItemID:   p.ItemID,
		Autosave: p.Autosave,
		Revision: p.Revision,
	})
	return c.NoContent(http.StatusAccepted)
}

type mediaReplacedPayload struct {
	OldID int64 `json:"old_id"`
	NewID int64 `json:"new_id"`
}

func (a *App) handleMediaReplaced(c echo.Context) error {
	var p mediaReplacedPayload
	if err := c.Bind(&p); err != nil || p.OldID == 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "old_id is required"})
	}
	a.Coordinator.MediaReplaced(c.Request().Context(), p.OldID, p.NewID)
	return c.NoContent(http.StatusAccepted)
}

type mediaMetaPayload struct {
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Filename string `json:"filename"`
}

func (p mediaMetaPayload) meta() MediaMeta {
	return MediaMeta{FileSize: p.FileSize, Width: p.Width, Height: p.Height, Filename: p.Filename}
}

type mediaUpdatedPayload struct {
	AssetID int64            `json:"asset_id"`
	Variant string           `json:"variant"`
	OldMeta mediaMetaPayload `json:"old_meta"`
	NewMeta mediaMetaPayload `json:"new_meta"`
}

func (a *App) handleMediaUpdated(c echo.Context) error {
	var p mediaUpdatedPayload
	if err := c.Bind(&p); err != nil || p.AssetID == 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "asset_id is required"})
	}
	variant := ReplaceMetadataUpdate
	if p.Variant == string(ReplacePostMetaChange) {
		variant = ReplacePostMetaChange
	}
	a.Coordinator.MediaSignal(c.Request().Context(), MediaReplaceSignal{
		Variant: variant,
		OldID:   p.AssetID,
		OldMeta: p.OldMeta.meta(),
		NewMeta: p.NewMeta.meta(),
	})
	return c.NoContent(http.StatusAccepted)
}

type fileChangedPayload struct {
	AssetID int64  `json:"asset_id"`
	Path    string `json:"path"`
}

func (a *App) handleFileChanged(c echo.Context) error {
	var p fileChangedPayload
	if err := c.Bind(&p); err != nil || p.AssetID == 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "asset_id is required"})
	}
	a.Coordinator.AttachedFileChanged(c.Request().Context(), p.AssetID, p.Path)
	return c.NoContent(http.StatusAccepted)
}

type purgeURLsPayload struct {
	URLs []string `json:"urls"`
}

func (a *App) handlePurgeURLs(c echo.Context) error {
	var p purgeURLsPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, opResult{Message: "invalid payload"})
	}
	if len(ValidURLs(p.URLs)) == 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "No valid URLs found"})
	}
	out := a.Coordinator.PurgeURLs(c.Request().Context(), p.URLs)
	a.flash(c, out)
	return c.JSON(statusCode(out), resultOf(out))
}

func (a *App) handlePurgeAll(c echo.Context) error {
	out := a.Coordinator.PurgeAll(c.Request().Context())
	a.flash(c, out)
	return c.JSON(statusCode(out), resultOf(out))
}

func (a *App) handlePurgePost(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "invalid post ID"})
	}
	out, err := a.Coordinator.PurgePostImages(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, opResult{Message: err.Error()})
	}
	a.flash(c, out)
	return c.JSON(statusCode(out), resultOf(out))
}

func (a *App) handlePurgeMedia(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "invalid asset ID"})
	}
	out, err := a.Coordinator.PurgeMedia(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, opResult{Message: err.Error()})
	}
	a.flash(c, out)
	return c.JSON(statusCode(out), resultOf(out))
}

func (a *App) handleListVariants(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, opResult{Message: "invalid asset ID"})
	}
	urls, err := a.Coordinator.ListImageVariants(id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, opResult{Message: err.Error()})
	}
	if urls == nil {
		urls = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"urls": urls})
}

func (a *App) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"configured": a.Coordinator.Configured(),
		"zone_id":    a.Config.Credentials.ZoneID,
		"api_token":  MaskToken(a.Config.Credentials.APIToken),
	})
}

func (a *App) handleTestConnection(c echo.Context) error {
	out := a.Coordinator.TestConnection(c.Request().Context())
	return c.JSON(statusCode(out), resultOf(out))
}

func (a *App) handleLog(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	entries, err := a.Log.Recent(limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []oplog.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// handleNotices drains one-shot notices: session flashes from manual
// operations plus queued notices from background purges.
func (a *App) handleNotices(c echo.Context) error {
	msgs := []string{}
	if sess, err := session.Get(sessionName, c); err == nil {
		for _, f := range sess.Flashes() {
			if s, ok := f.(string); ok {
				msgs = append(msgs, s)
			}
		}
		_ = sess.Save(c.Request(), c.Response())
	}
	msgs = append(msgs, a.notices.drain()...)
	return c.JSON(http.StatusOK, map[string]any{"notices": msgs})
}

// flash queues a one-shot session message for a successful manual operation
// so it survives one redirect cycle in the external admin UI.
func (a *App) flash(c echo.Context, out Outcome) {
	if !out.OK() {
		return
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return
	}
	sess.AddFlash(out.Message)
	_ = sess.Save(c.Request(), c.Response())
}

// statusCode maps an Outcome onto the HTTP code the manual surface answers
// with. Provider and transport failures are the upstream's fault, not the
// caller's.
func statusCode(out Outcome) int {
	switch out.Status {
	case StatusSuccess, StatusEmptyTargetSet:
		return http.StatusOK
	case StatusNotConfigured:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
