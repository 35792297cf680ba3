package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centsible-app/centsible/internal/middleware"
	"github.com/centsible-app/centsible/internal/models"
	"github.com/centsible-app/centsible/internal/service"
)

// GroupHandler serves group creation, lookup, and join-code membership.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler creates a GroupHandler on top of the given service.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type createGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type joinGroupRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
}

// Create makes a new group with the caller as its first member. The response
// carries the join code to hand out to the other members.
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groups.Create(c.Request.Context(), middleware.GetUserID(c), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// List returns the caller's groups, newest first.
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groups.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if groups == nil {
		groups = []*models.Group{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Get returns one group with its member list. Members only.
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Join enrolls the caller in the group matching the submitted join code.
func (h *GroupHandler) Join(c *gin.Context) {
	var req joinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groups.Join(c.Request.Context(), middleware.GetUserID(c), req.JoinCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}
