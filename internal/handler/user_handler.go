package handler

import (
	"net/http"

	"smartsahuji/internal/middleware"
	"smartsahuji/internal/model"
	"smartsahuji/internal/service"
	"smartsahuji/pkg/pagination"
	"smartsahuji/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UserHandler struct {
	userService  service.UserService
	cookies      middleware.CookieSettings
	authenticate gin.HandlerFunc
	rateLimit    gin.HandlerFunc
	log          *zap.Logger
}

// NewUserHandler sets up the routing dependencies for auth and user endpoints.
// rateLimit guards the credential endpoints and may be nil.
func NewUserHandler(userService service.UserService, cookies middleware.CookieSettings, authenticate, rateLimit gin.HandlerFunc, log *zap.Logger) *UserHandler {
	if rateLimit == nil {
		rateLimit = func(c *gin.Context) { c.Next() }
	}
	return &UserHandler{userService: userService, cookies: cookies, authenticate: authenticate, rateLimit: rateLimit, log: log}
}

// RegisterRoutes binds the endpoints under /auth
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")

	// Public routes
	authGroup.POST("/register", h.rateLimit, h.Register)
	authGroup.POST("/login", h.rateLimit, h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", h.Logout)
	authGroup.POST("/forgot-password", h.rateLimit, h.ForgotPassword)
	authGroup.POST("/reset-password/:token", h.rateLimit, h.ResetPassword)

	protected := authGroup.Group("", h.authenticate)
	{
		protected.GET("/profile", h.GetProfile)
		protected.PUT("/profile", h.UpdateProfile)
		protected.DELETE("/profile", h.DeleteProfile)
	}

	admin := authGroup.Group("/users", h.authenticate, middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("", h.ListUsers)
		admin.DELETE("/:id", h.DeleteUser)
	}
}

// Register creates an account
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "New account"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login handles POST /login to authenticate and return tokens
// @Summary      Login user
// @Description  Authenticates a user by email and password, returning an access and a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.AuthResult}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	res, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.cookies.SetTokenCookies(c, res.AccessToken, res.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// refreshTokenFrom reads the refresh_token cookie, falling back to the body.
func refreshTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(middleware.RefreshTokenCookie); err == nil && token != "" {
		return token
	}
	var req RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	return req.RefreshToken
}

// Refresh handles POST /refresh to issue new access and refresh tokens
// @Summary      Refresh token
// @Description  Issues a new access token and refresh token using a valid refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      RefreshTokenRequest   false  "Refresh Token (or refresh_token cookie)"
// @Success      200      {object}  response.Response{data=service.AuthResult}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/refresh [post]
func (h *UserHandler) Refresh(c *gin.Context) {
	res, err := h.userService.Refresh(c.Request.Context(), refreshTokenFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.cookies.SetTokenCookies(c, res.AccessToken, res.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Logout handles POST /logout to revoke the refresh token and clear cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), refreshTokenFrom(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.cookies.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// ForgotPassword starts a password reset
// @Summary      Forgot password
// @Description  Always succeeds so callers cannot learn which emails are registered
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      ForgotPasswordRequest  true  "Account email"
// @Success      200      {object}  response.Response
// @Router       /api/auth/forgot-password [post]
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	if err := h.userService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "If the email is registered, a reset link has been sent"))
}

// ResetPassword sets a new password with a reset token
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token    path      string                        true  "Reset token"
// @Param        payload  body      service.ResetPasswordRequest  true  "New password"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/auth/reset-password/{token} [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req service.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password updated"))
}

// GetProfile returns the current user
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/auth/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateProfile changes the current user's username, email or password
// @Summary      Update current user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateProfileRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), p.UserID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteProfile removes the current user and all of their data
// @Summary      Delete current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/auth/profile [delete]
func (h *UserHandler) DeleteProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), p.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.cookies.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Account deleted successfully"))
}

// ListUsers handles GET /users and extracts pagination controls
// @Summary      List users
// @Description  Retrieves a paginated list of users. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Failure      403    {object}  response.Response
// @Router       /api/auth/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	pg := pagination.FromQuery(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), pg.Page, pg.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pg.Of(users, total)))
}

// DeleteUser removes a user and their data. Admin only.
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/auth/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User deleted successfully"))
}
