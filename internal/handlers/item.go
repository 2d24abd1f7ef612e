package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ko-tarou/DeadLine/internal/auth"
	dom "github.com/ko-tarou/DeadLine/internal/domain"
	"github.com/ko-tarou/DeadLine/internal/dto"
	"github.com/ko-tarou/DeadLine/internal/evaluator"
	"github.com/ko-tarou/DeadLine/internal/service"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	svc *service.ItemService
}

func NewItemHandler(svc *service.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// Create godoc
// @Summary      Create a deadline item
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        body  body      dto.CreateItemRequest  true  "Item body"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  map[string]interface{}
// @Router       /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Date.Ptr() == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	it, err := h.svc.Create(c.Request.Context(), auth.UserIDFromContext(c), req.Title, req.Memo, *req.Date.Ptr())
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Reasons})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, h.itemToResponse(it))
}

// List godoc
// @Summary      List items, ranked for display by default
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Param        sort  query     string  false  "Ordering: priority (default), date_asc, date_desc, title_asc, title_desc, created_desc"
// @Success      200  {object}  dto.ListItemsResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	mode, err := service.ParseSortMode(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c), mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListItemsResponse{Items: h.itemsToResponses(list)})
}

// Primary godoc
// @Summary      Get the headline item (pinned, else soonest upcoming)
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.PrimaryItemResponse
// @Failure      500  {object}  map[string]string
// @Router       /items/primary [get]
func (h *ItemHandler) Primary(c *gin.Context) {
	it, ok, err := h.svc.Primary(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, dto.PrimaryItemResponse{})
		return
	}
	resp := h.itemToResponse(it)
	c.JSON(http.StatusOK, dto.PrimaryItemResponse{Item: &resp})
}

// GetByID godoc
// @Summary      Get an item by ID
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  dto.ItemResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /items/{id} [get]
func (h *ItemHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	it, err := h.svc.GetByID(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.itemToResponse(it))
}

// Update godoc
// @Summary      Update an item
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      int  true  "Item ID"
// @Param        body  body      dto.UpdateItemRequest  true  "Partial update"
// @Success      200   {object}  dto.ItemResponse
// @Failure      400   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /items/{id} [patch]
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var datePtr *time.Time
	if req.Date != nil {
		if req.Date.Ptr() == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must not be empty"})
			return
		}
		datePtr = req.Date.Ptr()
	}
	it, err := h.svc.Update(c.Request.Context(), auth.UserIDFromContext(c), id, req.Title, req.Memo, datePtr)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Reasons})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.itemToResponse(it))
}

// Delete godoc
// @Summary      Delete an item
// @Tags         items
// @Security     CookieAuth
// @Param        id   path  int  true  "Item ID"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Pin godoc
// @Summary      Pin an item (clears any other pin)
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  dto.ItemResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /items/{id}/pin [post]
func (h *ItemHandler) Pin(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	it, err := h.svc.Pin(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.itemToResponse(it))
}

// Unpin godoc
// @Summary      Unpin an item
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  dto.ItemResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /items/{id}/pin [delete]
func (h *ItemHandler) Unpin(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	it, err := h.svc.Unpin(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.itemToResponse(it))
}

// Search godoc
// @Summary      Search items by title or memo
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Param        q    query     string  true  "Search query"
// @Success      200  {object}  dto.ListItemsResponse
// @Failure      500  {object}  map[string]string
// @Router       /items/search [get]
func (h *ItemHandler) Search(c *gin.Context) {
	list, err := h.svc.Search(c.Request.Context(), auth.UserIDFromContext(c), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListItemsResponse{Items: h.itemsToResponses(list)})
}

// Overdue godoc
// @Summary      List overdue items, soonest first
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.ListItemsResponse
// @Failure      500  {object}  map[string]string
// @Router       /items/overdue [get]
func (h *ItemHandler) Overdue(c *gin.Context) {
	list, err := h.svc.Overdue(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListItemsResponse{Items: h.itemsToResponses(list)})
}

// Upcoming godoc
// @Summary      List items due within the next week
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.ListItemsResponse
// @Failure      500  {object}  map[string]string
// @Router       /items/upcoming [get]
func (h *ItemHandler) Upcoming(c *gin.Context) {
	list, err := h.svc.Upcoming(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListItemsResponse{Items: h.itemsToResponses(list)})
}

// Stats godoc
// @Summary      Item statistics per urgency band
// @Tags         items
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.StatsResponse
// @Failure      500  {object}  map[string]string
// @Router       /items/stats [get]
func (h *ItemHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.StatsResponse{
		Total:    st.Total,
		Overdue:  st.Overdue,
		DueToday: st.DueToday,
		Urgent:   st.Urgent,
		Pinned:   st.Pinned,
	})
}

// Widget godoc
// @Summary      Companion-surface view of the primary item
// @Tags         widget
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.WidgetEntryResponse
// @Failure      500  {object}  map[string]string
// @Router       /widget [get]
func (h *ItemHandler) Widget(c *gin.Context) {
	it, ok, err := h.svc.WidgetEntry(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, dto.WidgetEntryResponse{Empty: true})
		return
	}
	days := evaluator.DaysRemaining(it.Date, h.svc.Now())
	c.JSON(http.StatusOK, dto.WidgetEntryResponse{
		Title:      it.Title,
		DaysLeft:   &days,
		IsPinned:   it.IsPinned,
		StatusText: evaluator.Classify(days).Text(),
	})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *ItemHandler) itemToResponse(it dom.DeadlineItem) dto.ItemResponse {
	now := h.svc.Now()
	days := evaluator.DaysRemaining(it.Date, now)
	status := evaluator.Classify(days)
	return dto.ItemResponse{
		ID:            it.ID,
		Title:         it.Title,
		Date:          it.Date,
		Memo:          it.Memo,
		IsPinned:      it.IsPinned,
		DaysRemaining: days,
		Status:        string(status.Kind),
		StatusText:    status.Text(),
		PriorityScore: evaluator.PriorityScore(it.IsPinned, days),
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}

func (h *ItemHandler) itemsToResponses(list []dom.DeadlineItem) []dto.ItemResponse {
	out := make([]dto.ItemResponse, len(list))
	for i := range list {
		out[i] = h.itemToResponse(list[i])
	}
	return out
}
