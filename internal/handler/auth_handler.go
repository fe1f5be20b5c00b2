package handler

import (
	"net/http"
	"time"

	"members/internal/middleware"
	"members/internal/service"
	"members/pkg/response"

	"github.com/gin-gonic/gin"
)

type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthHandler struct {
	authService   service.AuthService
	userService   service.UserService
	signer        *middleware.TokenSigner
	limiter       *middleware.IPRateLimiter
	secureCookies bool
}

func NewAuthHandler(
	authService service.AuthService,
	userService service.UserService,
	signer *middleware.TokenSigner,
	limiter *middleware.IPRateLimiter,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		userService:   userService,
		signer:        signer,
		limiter:       limiter,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register", h.limiter.Limit(), h.Register)
	router.POST("/login", h.limiter.Limit(), h.Login)
	router.POST("/logout", h.Logout)
	router.GET("/me", middleware.RequireAuth(), h.Me)
}

// Register creates an account awaiting approval
// @Summary      Register
// @Description  Creates an unapproved account with the default member role.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration payload"
// @Success      201      {object}  response.Response{data=webmodel.UserView}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login authenticates and starts a session
// @Summary      Login
// @Description  Checks the credentials, stores a session and sets the session cookie. The token is also returned for Bearer use.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=LoginResponse}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.authService.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	signed, err := h.signer.Sign(session)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetSessionCookie(c, signed, session.ExpiresAt, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, LoginResponse{
		Token:     signed,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}))
}

// Logout ends the current session
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.SessionTokenFrom(c); token != "" {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			respondError(c, err)
			return
		}
	}
	middleware.ClearSessionCookie(c, h.secureCookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out"}))
}

// Me returns the caller's profile
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=webmodel.UserView}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	user, err := h.userService.GetUser(c.Request.Context(), actor, actor.UserID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
