package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/internal/auth"
	"github.com/teamhub/teamhub/backend/go-services/internal/oauth"
	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

const (
	refreshCookie = "refreshToken"
	stateCookie   = "oauthState"
)

// AuthHandler serves /auth: password and OAuth sign-in, token rotation and account recovery.
type AuthHandler struct {
	svc       *auth.Service
	providers oauth.Registry
	clientURL string
}

func NewAuthHandler(svc *auth.Service, providers oauth.Registry, clientURL string) *AuthHandler {
	return &AuthHandler{svc: svc, providers: providers, clientURL: strings.TrimRight(clientURL, "/")}
}

// Register routes under /auth. limit guards every route; authenticate is used
// for the routes that need a signed-in caller.
func (h *AuthHandler) Register(rg *gin.RouterGroup, limit, authenticate gin.HandlerFunc) {
	a := rg.Group("/auth", limit)
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.POST("/refresh-tokens", h.Refresh)
	a.POST("/forgot-password", h.ForgotPassword)
	a.POST("/reset-password", h.ResetPassword)
	a.POST("/verify-email", h.VerifyEmail)
	a.POST("/send-verification-email", authenticate, h.SendVerificationEmail)
	a.GET("/:provider", h.OAuthStart)
	a.GET("/:provider/callback", h.OAuthCallback)
}

func setRefreshCookie(c *gin.Context, t auth.TokenInfo) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(refreshCookie, t.Token, int(time.Until(t.Expires).Seconds()), "/", "", true, true)
}

func clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(refreshCookie, "", -1, "/", "", true, true)
}

// refreshToken reads the refresh token from the cookie, falling back to the body.
func refreshToken(c *gin.Context) string {
	if v, err := c.Cookie(refreshCookie); err == nil && v != "" {
		return v
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&body)
	return body.RefreshToken
}

func signedIn(c *gin.Context, status int, res *auth.Result) {
	setRefreshCookie(c, res.Tokens.Refresh)
	body := gin.H{"user": res.User, "token": res.Tokens.Access}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	c.JSON(status, body)
}

type signUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	signedIn(c, http.StatusCreated, res)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	signedIn(c, http.StatusOK, res)
}

// Logout deletes the refresh record and revokes the bearer access token when one is sent.
func (h *AuthHandler) Logout(c *gin.Context) {
	rt := refreshToken(c)
	if rt == "" {
		respondError(c, apierr.Validation("refresh token is required"))
		return
	}
	access, _ := middleware.BearerToken(c)
	if err := h.svc.Logout(c.Request.Context(), rt, access); err != nil {
		respondError(c, err)
		return
	}
	clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	rt := refreshToken(c)
	if rt == "" {
		respondError(c, apierr.Unauthenticated("Please authenticate"))
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), rt)
	if err != nil {
		respondError(c, err)
		return
	}
	signedIn(c, http.StatusOK, res)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, apierr.Validation("token is required"))
		return
	}
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), token, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, apierr.Validation("token is required"))
		return
	}
	if err := h.svc.VerifyEmail(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isEmailVerified": true})
}

func (h *AuthHandler) SendVerificationEmail(c *gin.Context) {
	if err := h.svc.SendVerificationEmail(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// oauthState travels through the provider; the nonce is also kept in a cookie.
type oauthState struct {
	Nonce string `json:"n"`
	URL   string `json:"u"`
}

func (s oauthState) encode() string {
	b, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeState(raw string) (oauthState, bool) {
	var s oauthState
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || json.Unmarshal(b, &s) != nil {
		return s, false
	}
	return s, s.Nonce != ""
}

// returnURL is the referring page without its query, or the login page.
func (h *AuthHandler) returnURL(c *gin.Context) string {
	if ref := c.GetHeader("Referer"); ref != "" {
		ref, _, _ = strings.Cut(ref, "?")
		return ref
	}
	return h.clientURL + "/auth/login"
}

func (h *AuthHandler) failOAuth(c *gin.Context, provider, target string, err error) {
	logger.Warnf("oauth %s: %v", provider, err)
	u, perr := url.Parse(target)
	if perr != nil {
		u, _ = url.Parse(h.clientURL + "/auth/login")
	}
	q := u.Query()
	q.Set("OAuthRedirect", provider)
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, u.String())
}

func (h *AuthHandler) OAuthStart(c *gin.Context) {
	name := c.Param("provider")
	p, ok := h.providers.Get(name)
	if !ok {
		h.failOAuth(c, name, h.returnURL(c), apierr.NotFound(name+" strategy does not exist"))
		return
	}
	state := oauthState{Nonce: uuid.NewString(), URL: h.returnURL(c)}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state.Nonce, 600, "/", "", true, true)
	c.Redirect(http.StatusFound, p.AuthCodeURL(state.encode()))
}

func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	name := c.Param("provider")
	state, ok := decodeState(c.Query("state"))
	target := state.URL
	if target == "" {
		target = h.returnURL(c)
	}
	p, found := h.providers.Get(name)
	if !found {
		h.failOAuth(c, name, target, apierr.NotFound(name+" strategy does not exist"))
		return
	}
	if nonce, err := c.Cookie(stateCookie); !ok || err != nil || nonce != state.Nonce {
		h.failOAuth(c, name, target, apierr.Unauthenticated("state mismatch"))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", true, true)

	code := c.Query("code")
	if code == "" {
		h.failOAuth(c, name, target, apierr.Unauthenticated("Authentication Failed"))
		return
	}
	id, err := p.Exchange(c.Request.Context(), code)
	if err != nil {
		h.failOAuth(c, name, target, err)
		return
	}
	res, err := h.svc.OAuthLogin(c.Request.Context(), id)
	if err != nil {
		h.failOAuth(c, name, target, err)
		return
	}
	setRefreshCookie(c, res.Tokens.Refresh)
	c.Redirect(http.StatusFound, h.clientURL+"/app")
}
