package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/teamhub/backend/go-services/internal/membership"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

// TeamHandler serves /team. Mutations answer with the membership outcome:
// the affected user and team plus any warnings and per-member failures.
type TeamHandler struct {
	sync *membership.Synchronizer
}

func NewTeamHandler(s *membership.Synchronizer) *TeamHandler {
	return &TeamHandler{sync: s}
}

func (h *TeamHandler) Register(rg *gin.RouterGroup, authenticate gin.HandlerFunc, engine middleware.Authorizer) {
	t := rg.Group("/team", authenticate)
	t.POST("", h.Create)
	t.POST("/set-active-team", h.SetActive)

	t.GET("/:teamId", middleware.Authorize(engine, roles.GetTeam), h.Get)
	t.POST("/:teamId", middleware.Authorize(engine, roles.GetTeam), h.Leave)
	t.PATCH("/:teamId", middleware.Authorize(engine, roles.ManageTeam), h.Rename)
	t.DELETE("/:teamId", middleware.Authorize(engine, roles.DeleteTeam), h.Delete)

	t.POST("/:teamId/invitation", middleware.Authorize(engine, roles.ManageTeam), h.Invite)
	t.GET("/:teamId/invitation/:invitationId", h.GetInvitation)
	t.POST("/:teamId/invitation/:invitationId", h.HandleInvitation)
	t.DELETE("/:teamId/invitation/:invitationId", middleware.Authorize(engine, roles.ManageTeam), h.DeleteInvitation)

	t.PATCH("/:teamId/user/:userId", middleware.Authorize(engine, roles.ManageTeam), h.UpdateMember)
	t.DELETE("/:teamId/user/:userId", middleware.Authorize(engine, roles.ManageTeam), h.RemoveMember)
}

type teamNameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *TeamHandler) Create(c *gin.Context) {
	var req teamNameRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.sync.CreateTeam(c.Request.Context(), middleware.CurrentUser(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *TeamHandler) SetActive(c *gin.Context) {
	var req struct {
		TeamID string `json:"teamId" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.sync.SetActiveTeam(c.Request.Context(), middleware.CurrentUser(c), req.TeamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *TeamHandler) Get(c *gin.Context) {
	t, err := h.sync.GetTeam(c.Request.Context(), c.Param("teamId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TeamHandler) Leave(c *gin.Context) {
	out, err := h.sync.LeaveTeam(c.Request.Context(), middleware.CurrentUser(c), c.Param("teamId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TeamHandler) Rename(c *gin.Context) {
	var req teamNameRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.sync.RenameTeam(c.Request.Context(), middleware.CurrentUser(c), c.Param("teamId"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TeamHandler) Delete(c *gin.Context) {
	out, err := h.sync.DeleteTeam(c.Request.Context(), middleware.CurrentUser(c), c.Param("teamId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type roleRequest struct {
	Role roles.TeamRole `json:"role" binding:"required"`
}

func (h *TeamHandler) Invite(c *gin.Context) {
	var req struct {
		Email string         `json:"email" binding:"required,email"`
		Role  roles.TeamRole `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.sync.CreateInvitation(c.Request.Context(), c.Param("teamId"), req.Email, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TeamHandler) GetInvitation(c *gin.Context) {
	v, err := h.sync.GetInvitation(c.Request.Context(), middleware.CurrentUser(c), c.Param("teamId"), c.Param("invitationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *TeamHandler) HandleInvitation(c *gin.Context) {
	var req struct {
		Accepted *bool `json:"accepted" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.sync.HandleInvitation(c.Request.Context(), middleware.CurrentUser(c), c.Param("teamId"), c.Param("invitationId"), *req.Accepted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TeamHandler) DeleteInvitation(c *gin.Context) {
	t, err := h.sync.DeleteInvitation(c.Request.Context(), c.Param("teamId"), c.Param("invitationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TeamHandler) UpdateMember(c *gin.Context) {
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.sync.UpdateMemberRole(c.Request.Context(), c.Param("teamId"), c.Param("userId"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	out, err := h.sync.RemoveMember(c.Request.Context(), c.Param("teamId"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
