package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driving"
)

type handler struct {
	reader driving.RealmReader
	editor driving.RealmEditor
	daemon driving.SyncDaemon
}

// status reports the sync daemon's progress.
func (h *handler) status(c *gin.Context) {
	status := h.daemon.Status()
	c.JSON(http.StatusOK, gin.H{
		"run_id":          status.RunID,
		"state":           status.State,
		"cursor":          status.Cursor,
		"last_sync":       status.LastSync,
		"batches_applied": status.BatchesApplied,
		"records_applied": status.RecordsApplied,
		"failures":        status.Failures,
		"last_error":      status.LastError,
	})
}

func (h *handler) search(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	hits, err := h.reader.Search(c.Request.Context(), UserFromContext(c), query, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	results := make([]gin.H, 0, len(hits))
	for i := range hits {
		results = append(results, gin.H{
			"id":           hits[i].DocID,
			"kind":         hits[i].Kind,
			"title":        hits[i].Title,
			"description":  hits[i].Description,
			"creator":      hits[i].Creator,
			"series_title": hits[i].SeriesTitle,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *handler) realmByPath(c *gin.Context) {
	view, err := h.reader.RealmByPath(c.Request.Context(), UserFromContext(c), c.Query("path"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view))
}

func (h *handler) realmByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.reader.RealmByID(c.Request.Context(), UserFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view))
}

func (h *handler) addChild(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name    string `json:"name"`
		Segment string `json:"segment"`
	}
	if !bind(c, &req) {
		return
	}

	realm, err := h.editor.AddChild(c.Request.Context(), UserFromContext(c), id, req.Name, req.Segment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, realmResponse(realm))
}

func (h *handler) rename(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !bind(c, &req) {
		return
	}

	realm, err := h.editor.Rename(c.Request.Context(), UserFromContext(c), id, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, realmResponse(realm))
}

func (h *handler) changeSegment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Segment string `json:"segment"`
	}
	if !bind(c, &req) {
		return
	}

	realm, err := h.editor.ChangePathSegment(c.Request.Context(), UserFromContext(c), id, req.Segment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, realmResponse(realm))
}

func (h *handler) deleteRealm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.editor.Delete(c.Request.Context(), UserFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) setChildOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Mode     string  `json:"mode"`
		ChildIDs []int64 `json:"child_ids"`
	}
	if !bind(c, &req) {
		return
	}

	realm, err := h.editor.SetChildOrder(c.Request.Context(), UserFromContext(c),
		id, domain.OrderMode(req.Mode), req.ChildIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, realmResponse(realm))
}

type blockRequest struct {
	Position     int     `json:"position"`
	Type         string  `json:"type"`
	Content      string  `json:"content"`
	SeriesID     *string `json:"series_id"`
	EventID      *string `json:"event_id"`
	ShowTitle    bool    `json:"show_title"`
	ShowMetadata bool    `json:"show_metadata"`
}

func (h *handler) insertBlock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req blockRequest
	if !bind(c, &req) {
		return
	}

	block, err := h.editor.InsertBlock(c.Request.Context(), UserFromContext(c), domain.Block{
		RealmID:      id,
		Position:     req.Position,
		Type:         domain.BlockType(req.Type),
		Content:      req.Content,
		SeriesID:     req.SeriesID,
		EventID:      req.EventID,
		ShowTitle:    req.ShowTitle,
		ShowMetadata: req.ShowMetadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blockResponse(block))
}

func (h *handler) updateBlock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req blockRequest
	if !bind(c, &req) {
		return
	}

	block, err := h.editor.UpdateBlock(c.Request.Context(), UserFromContext(c), domain.Block{
		ID:           id,
		Type:         domain.BlockType(req.Type),
		Content:      req.Content,
		SeriesID:     req.SeriesID,
		EventID:      req.EventID,
		ShowTitle:    req.ShowTitle,
		ShowMetadata: req.ShowMetadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, blockResponse(block))
}

func (h *handler) moveBlock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pos, ok := pathID(c, "pos")
	if !ok {
		return
	}
	var req struct {
		Up bool `json:"up"`
	}
	if !bind(c, &req) {
		return
	}

	if err := h.editor.MoveBlock(c.Request.Context(), UserFromContext(c), id, int(pos), req.Up); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) removeBlock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pos, ok := pathID(c, "pos")
	if !ok {
		return
	}
	if err := h.editor.RemoveBlock(c.Request.Context(), UserFromContext(c), id, int(pos)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func viewResponse(view *driving.RealmView) gin.H {
	children := make([]gin.H, 0, len(view.Children))
	for i := range view.Children {
		children = append(children, realmResponse(&view.Children[i]))
	}
	blocks := make([]gin.H, 0, len(view.Blocks))
	for i := range view.Blocks {
		blocks = append(blocks, resolvedBlockResponse(&view.Blocks[i]))
	}
	resp := realmResponse(&view.Realm)
	resp["children"] = children
	resp["blocks"] = blocks
	return resp
}

func realmResponse(realm *domain.Realm) gin.H {
	return gin.H{
		"id":           realm.ID,
		"name":         realm.Name,
		"path":         realm.Path,
		"path_segment": realm.PathSegment,
		"child_order":  realm.ChildOrder,
	}
}

func blockResponse(block *domain.Block) gin.H {
	return gin.H{
		"id":            block.ID,
		"realm_id":      block.RealmID,
		"position":      block.Position,
		"type":          block.Type,
		"content":       block.Content,
		"series_id":     block.SeriesID,
		"event_id":      block.EventID,
		"show_title":    block.ShowTitle,
		"show_metadata": block.ShowMetadata,
	}
}

func resolvedBlockResponse(rb *domain.ResolvedBlock) gin.H {
	resp := blockResponse(&rb.Block)
	resp["deleted"] = rb.Deleted
	if rb.Series != nil {
		resp["series"] = gin.H{
			"id":          rb.Series.ID,
			"title":       rb.Series.Title,
			"description": rb.Series.Description,
		}
	}
	if rb.Event != nil {
		resp["event"] = gin.H{
			"id":          rb.Event.ID,
			"title":       rb.Event.Title,
			"description": rb.Event.Description,
			"creator":     rb.Event.Creator,
			"duration":    rb.Event.Duration,
			"thumbnail":   rb.Event.Thumbnail,
			"tracks":      rb.Event.Tracks,
		}
	}
	return resp
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body, writing a 400 on failure.
func bind(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps domain error kinds onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSyncInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotImplemented):
		status = http.StatusNotImplemented
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
