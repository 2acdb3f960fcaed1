package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"euroassist/internal/domain"
	"euroassist/internal/service"
)

const oauthStateCookie = "euroassist.oauth_state"

// AuthHandler mantiene dependencias para login, registro y sesion.
type AuthHandler struct {
	logger   *zap.Logger
	users    *service.UserService
	sessions *service.SessionService
	oauth    *service.OAuthService
	cookie   CookieConfig
}

// NewAuthHandler crea el handler; oauth puede ser nil si Google no esta configurado.
func NewAuthHandler(logger *zap.Logger, users *service.UserService, sessions *service.SessionService, oauth *service.OAuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		users:    users,
		sessions: sessions,
		oauth:    oauth,
		cookie:   cookie,
	}
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, h.logger, err, "Internal server error")
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

// Register maneja POST /api/auth/register y deja la sesion iniciada.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
		FirstName string `json:"firstName" binding:"max=100"`
		LastName  string `json:"lastName" binding:"max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeServiceError(c, h.logger, err, "Internal server error")
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully", "user": user})
}

// Logout maneja POST /api/auth/logout; funciona aun sin sesion valida.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := readSessionCookie(c.Request, h.cookie.Name); err == nil {
		if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
			h.logger.Error("destroy session failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}
	}
	clearCookie(c.Writer, h.cookie, h.cookie.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// CurrentUser maneja GET /api/auth/user.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeServiceError(c, h.logger, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GoogleLogin maneja GET /api/auth/google: redirige al consentimiento de Google.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	url, state, err := h.oauth.LoginURL()
	if err != nil {
		writeServiceError(c, h.logger, err, "Internal server error")
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback maneja GET /api/auth/google/callback.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	stateCookie, err := c.Request.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid OAuth state"})
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:    oauthStateCookie,
		Value:   "",
		Path:    "/api/auth/google",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})

	user, err := h.oauth.HandleCallback(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.logger.Warn("google login failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Google login failed"})
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) startSession(c *gin.Context, user domain.User) bool {
	issued, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("create session failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return false
	}
	setSessionCookie(c.Writer, h.cookie, issued.Token, issued.ExpiresAt)
	return true
}
