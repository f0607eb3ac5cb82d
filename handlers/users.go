package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/membership"
	"github.com/teamhub/teamhub/backend/go-services/internal/roles"
	"github.com/teamhub/teamhub/backend/go-services/internal/users"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

const (
	maxAvatarSize = 5 << 20
	avatarURLTTL  = 15 * time.Minute
)

// AvatarStore keeps avatar images in object storage.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error)
	AvatarURL(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteAvatar(ctx context.Context, userID string) error
}

// SessionRevoker drops every stored token of a user.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) error
}

type UserHandler struct {
	users    *users.Service
	sync     *membership.Synchronizer
	sessions SessionRevoker
	avatars  AvatarStore
}

// NewUserHandler wires the users API. avatars may be nil when object storage is not configured.
func NewUserHandler(u *users.Service, s *membership.Synchronizer, sessions SessionRevoker, avatars AvatarStore) *UserHandler {
	return &UserHandler{users: u, sync: s, sessions: sessions, avatars: avatars}
}

func (h *UserHandler) Register(rg *gin.RouterGroup, authenticate gin.HandlerFunc, engine middleware.Authorizer) {
	u := rg.Group("/users", authenticate)
	u.GET("/me", h.Me)
	u.POST("", middleware.Authorize(engine, roles.ManageUsers), h.Create)
	u.GET("", middleware.Authorize(engine, roles.GetUsers), h.List)
	u.GET("/:userId", middleware.Authorize(engine, roles.GetUsers), h.Get)
	u.PATCH("/:userId", middleware.Authorize(engine, roles.ManageUsers), h.Update)
	u.DELETE("/:userId", middleware.Authorize(engine, roles.ManageUsers), h.Delete)
	u.PUT("/:userId/avatar", middleware.Authorize(engine, roles.ManageUsers), h.UploadAvatar)
	u.GET("/:userId/avatar", middleware.Authorize(engine, roles.GetUsers), h.Avatar)
}

func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

type createUserRequest struct {
	Name     string           `json:"name" binding:"required"`
	Email    string           `json:"email" binding:"required,email"`
	Password string           `json:"password" binding:"required"`
	Role     roles.GlobalRole `json:"role" binding:"required"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.CreateWithBilling(c.Request.Context(), users.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierr.Validation(key + " must be a positive integer")
	}
	return n, nil
}

func (h *UserHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.users.Query(c.Request.Context(),
		users.Filter{Name: c.Query("name"), Role: roles.GlobalRole(c.Query("role"))},
		users.QueryOptions{SortBy: c.Query("sortBy"), Limit: limit, Page: page})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name == nil && req.Email == nil && req.Password == nil {
		respondError(c, apierr.Validation("at least one of name, email, password is required"))
		return
	}
	out, err := h.sync.UpdateProfile(c.Request.Context(), c.Param("userId"), membership.ProfileUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Delete removes the account with its memberships, stored tokens and avatar.
// It answers 204, or 200 with the outcome when a step was only partly done.
func (h *UserHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("userId")
	out, err := h.sync.DeleteUser(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.sessions.RevokeUserSessions(ctx, id); err != nil {
		logger.Warnf("users: revoke sessions of %s: %v", id, err)
	}
	if h.avatars != nil && out.User.Avatar != "" {
		if err := h.avatars.DeleteAvatar(ctx, id); err != nil {
			logger.Warnf("users: delete avatar of %s: %v", id, err)
		}
	}
	if !out.Complete() || len(out.Warnings) > 0 {
		c.JSON(http.StatusOK, out)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		respondError(c, apierr.External("Avatar storage is not configured", nil))
		return
	}
	ct := c.ContentType()
	if !strings.HasPrefix(ct, "image/") {
		respondError(c, apierr.Validation("avatar must be an image"))
		return
	}
	size := c.Request.ContentLength
	if size <= 0 || size > maxAvatarSize {
		respondError(c, apierr.Validation("avatar must be between 1 byte and 5 MB"))
		return
	}
	ctx := c.Request.Context()
	id := c.Param("userId")
	if _, err := h.users.GetByID(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	key, err := h.avatars.UploadAvatar(ctx, id, io.LimitReader(c.Request.Body, size), size, ct)
	if err != nil {
		respondError(c, apierr.External("Avatar upload failed", err))
		return
	}
	u, err := h.users.SetAvatar(ctx, id, key)
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.avatars.AvatarURL(ctx, key, avatarURLTTL)
	if err != nil {
		respondError(c, apierr.External("Avatar upload failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "avatarUrl": url})
}

func (h *UserHandler) Avatar(c *gin.Context) {
	if h.avatars == nil {
		respondError(c, apierr.External("Avatar storage is not configured", nil))
		return
	}
	ctx := c.Request.Context()
	u, err := h.users.GetByID(ctx, c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if u.Avatar == "" {
		respondError(c, apierr.NotFound("Avatar not found"))
		return
	}
	url, err := h.avatars.AvatarURL(ctx, u.Avatar, avatarURLTTL)
	if err != nil {
		respondError(c, apierr.External("Avatar lookup failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatarUrl": url})
}
