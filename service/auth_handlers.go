package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/auth"
	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/store"
)

// RegisterAccount handles POST /api/auth/register. It creates a company
// and its first admin user in one step.
func (s *Service) RegisterAccount(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid registration payload")
		return
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	sector := store.BusinessSector(req.BusinessSector)
	if req.BusinessSector != "" {
		if _, ok := s.catalog.SectorByID(sector); !ok {
			sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown business sector %q", req.BusinessSector))
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	company := &store.Company{
		Name:           req.CompanyName,
		MainLocation:   req.MainLocation,
		BusinessSector: sector,
		Website:        req.CompanyWebsite,
		Phone:          req.CompanyPhone,
	}
	user := &store.User{
		Email:          req.Email,
		HashedPassword: hash,
		FullName:       strings.TrimSpace(req.FirstName + " " + req.LastName),
		Role:           store.RoleAdmin,
		IsActive:       true,
	}
	if err := s.store.CreateCompanyWithAdmin(c.Request.Context(), company, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			sendError(c, http.StatusConflict, "An account with this email already exists")
			return
		}
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	resp, err := s.tokenResponse(user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "register", "user", user.ID, map[string]string{"company_id": company.ID})
	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/auth/token.
func (s *Service) Login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid login payload")
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(user.HashedPassword, req.Password) {
		// Same response for unknown email and wrong password.
		s.audit(c, "login_failed", "user", "", map[string]string{"email": req.Email})
		sendError(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		sendError(c, http.StatusForbidden, "Account is disabled")
		return
	}

	resp, err := s.tokenResponse(user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	if err := s.store.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}

	s.audit(c, "login", "user", user.ID, nil)
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /api/auth/refresh.
func (s *Service) Refresh(c *gin.Context) {
	var req api.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid refresh payload")
		return
	}

	userID, err := s.issuer.Verify(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	user, err := s.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		sendError(c, http.StatusUnauthorized, "Unknown user")
		return
	}
	if !user.IsActive {
		sendError(c, http.StatusForbidden, "Account is disabled")
		return
	}

	resp, err := s.tokenResponse(user)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this
// only records the event; clients discard their token pair.
func (s *Service) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	s.audit(c, "logout", "user", user.ID, nil)
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (s *Service) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// UpdateMe handles PUT /api/auth/me. Password changes require the current
// password.
func (s *Service) UpdateMe(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid profile payload")
		return
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.NewPassword != nil {
		if !auth.VerifyPassword(user.HashedPassword, req.CurrentPassword) {
			sendError(c, http.StatusForbidden, "Current password is incorrect")
			return
		}
		if err := auth.ValidatePasswordStrength(*req.NewPassword); err != nil {
			sendError(c, http.StatusBadRequest, err.Error())
			return
		}
		hash, err := auth.HashPassword(*req.NewPassword)
		if err != nil {
			sendError(c, http.StatusInternalServerError, "Internal error")
			return
		}
		user.HashedPassword = hash
	}

	if err := s.store.UpdateUser(c.Request.Context(), user); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "profile_update", "user", user.ID, nil)
	c.JSON(http.StatusOK, user)
}

// InviteUser handles POST /api/auth/invite. The new user joins the
// caller's company with the requested role, capped at the caller's own.
func (s *Service) InviteUser(c *gin.Context) {
	caller := middleware.CurrentUser(c)

	var req api.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid invite payload")
		return
	}
	role := store.UserRole(req.Role)
	if !role.Valid() {
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown role %q", req.Role))
		return
	}
	if !caller.Role.AtLeast(role) {
		sendError(c, http.StatusForbidden, "Cannot grant a role above your own")
		return
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	user := &store.User{
		Email:          req.Email,
		HashedPassword: hash,
		FullName:       strings.TrimSpace(req.FirstName + " " + req.LastName),
		Role:           role,
		IsActive:       true,
		CompanyID:      caller.CompanyID,
	}
	if err := s.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			sendError(c, http.StatusConflict, "An account with this email already exists")
			return
		}
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "invite", "user", user.ID, map[string]string{"role": string(role)})
	c.JSON(http.StatusCreated, user)
}

func (s *Service) tokenResponse(user *store.User) (*api.AuthResponse, error) {
	access, err := s.issuer.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	return &api.AuthResponse{
		TokenPair: api.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "bearer",
			ExpiresIn:    int(s.issuer.AccessExpiry() / time.Second),
		},
		User: user,
	}, nil
}
