package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/workspace-reservation/internal/model"
	"github.com/iliyamo/workspace-reservation/internal/repository"
	"github.com/iliyamo/workspace-reservation/internal/timeutil"
)

// ResourceHandler serves the resource directory: listing and lookup for
// all authenticated users, plus the administrative create / maintenance /
// block operations which the router restricts to ADMIN.
type ResourceHandler struct {
	Repo *repository.ResourceRepo
}

// NewResourceHandler constructs a ResourceHandler.
func NewResourceHandler(repo *repository.ResourceRepo) *ResourceHandler {
	return &ResourceHandler{Repo: repo}
}

type resourceResponse struct {
	ID               uint64  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Capacity         uint32  `json:"capacity"`
	Location         string  `json:"location"`
	UnderMaintenance bool    `json:"under_maintenance"`
	Blocked          bool    `json:"blocked"`
	BlockReason      *string `json:"block_reason,omitempty"`
	BlockedFrom      *string `json:"blocked_from,omitempty"`
	BlockedUntil     *string `json:"blocked_until,omitempty"`
}

func toResourceResponse(res *model.Resource) resourceResponse {
	out := resourceResponse{
		ID:               res.ID,
		Name:             res.Name,
		Type:             string(res.Type),
		Capacity:         res.Capacity,
		Location:         res.Location,
		UnderMaintenance: res.UnderMaintenance,
		Blocked:          res.Blocked,
		BlockReason:      res.BlockReason,
	}
	if res.BlockedFrom != nil {
		s := timeutil.FormatDisplay(*res.BlockedFrom)
		out.BlockedFrom = &s
	}
	if res.BlockedUntil != nil {
		s := timeutil.FormatDisplay(*res.BlockedUntil)
		out.BlockedUntil = &s
	}
	return out
}

// List handles GET /v1/resources with an optional ?type=ROOM|DESK filter.
func (h *ResourceHandler) List(c echo.Context) error {
	filter := model.ResourceType(c.QueryParam("type"))
	if filter != "" && !filter.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be ROOM or DESK"})
	}
	resources, err := h.Repo.List(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]resourceResponse, 0, len(resources))
	for _, res := range resources {
		out = append(out, toResourceResponse(res))
	}
	return c.JSON(http.StatusOK, echo.Map{"resources": out})
}

// Get handles GET /v1/resources/:id.
func (h *ResourceHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	res, err := h.Repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toResourceResponse(res))
}

// Create handles POST /v1/admin/resources.  ADMIN only.
func (h *ResourceHandler) Create(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Capacity uint32 `json:"capacity"`
		Location string `json:"location"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	resType := model.ResourceType(body.Type)
	if !resType.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be ROOM or DESK"})
	}
	if resType == model.ResourceTypeRoom && body.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity is required for rooms"})
	}

	res := &model.Resource{
		Name:     body.Name,
		Type:     resType,
		Capacity: body.Capacity,
		Location: body.Location,
	}
	if err := h.Repo.Create(c.Request().Context(), res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, toResourceResponse(res))
}

// SetMaintenance handles PUT /v1/admin/resources/:id/maintenance with a
// body of {"under_maintenance": bool}.  ADMIN only.
func (h *ResourceHandler) SetMaintenance(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	var body struct {
		UnderMaintenance bool `json:"under_maintenance"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Repo.SetMaintenance(c.Request().Context(), id, body.UnderMaintenance); err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// SetBlock handles PUT /v1/admin/resources/:id/block.  Blocking accepts
// an optional reason and window; unblocking clears them.  ADMIN only.
func (h *ResourceHandler) SetBlock(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	var body struct {
		Blocked      bool    `json:"blocked"`
		Reason       *string `json:"reason"`
		BlockedFrom  *string `json:"blocked_from"`
		BlockedUntil *string `json:"blocked_until"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var from, until *time.Time
	if body.BlockedFrom != nil {
		t, err := timeutil.ParseInput(*body.BlockedFrom)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid blocked_from: " + err.Error()})
		}
		from = &t
	}
	if body.BlockedUntil != nil {
		t, err := timeutil.ParseInput(*body.BlockedUntil)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid blocked_until: " + err.Error()})
		}
		until = &t
	}
	if err := h.Repo.SetBlocked(c.Request().Context(), id, body.Blocked, body.Reason, from, until); err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}
