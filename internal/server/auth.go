package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/billfold/billfold/internal/audit/domain"
	authdomain "github.com/billfold/billfold/internal/auth/domain"
	"github.com/billfold/billfold/internal/usercontext"
)

// SignUp registers a new account and returns a session token.
//
//	@Summary	Register a new user
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/v1/auth/signup [post]
func (s *Server) SignUp(c *gin.Context) {
	var req authdomain.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if !s.loginLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	resp, err := s.authSvc.SignUp(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := resp.User.ID
	s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		UserID:     &userID,
		Action:     "user.signed_up",
		TargetType: "user",
		TargetID:   userID.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SignIn exchanges credentials for a session token.
//
//	@Summary	Sign in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/v1/auth/login [post]
func (s *Server) SignIn(c *gin.Context) {
	var req authdomain.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if !s.loginLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	resp, err := s.authSvc.SignIn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Me returns the authenticated user's profile.
func (s *Server) Me(c *gin.Context) {
	userID, ok := usercontext.UserIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// UpdateProfile updates the caller's display name and email address.
func (s *Server) UpdateProfile(c *gin.Context) {
	var req authdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authSvc.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := user.ID
	s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		UserID:     &userID,
		Action:     "user.profile_updated",
		TargetType: "user",
		TargetID:   userID.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// ChangePassword rotates the caller's password.
func (s *Server) ChangePassword(c *gin.Context) {
	var req authdomain.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authSvc.ChangePassword(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
