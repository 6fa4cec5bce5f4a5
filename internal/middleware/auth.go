package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/auth"
	"github.com/greenscope/greenscope/store"
)

const userKey = "currentUser"

// BearerAuth verifies the Authorization header and loads the current user
// into the request context. Disabled accounts are rejected.
func BearerAuth(issuer *auth.Issuer, s *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortError(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		userID, err := issuer.Verify(strings.TrimSpace(token), auth.TokenAccess)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := s.GetUser(c.Request.Context(), userID)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "Unknown user")
			return
		}
		if !user.IsActive {
			abortError(c, http.StatusForbidden, "Account is disabled")
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by BearerAuth, or nil.
func CurrentUser(c *gin.Context) *store.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*store.User)
	return user
}

// RequireRole rejects requests from users below the given role.
func RequireRole(min store.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortError(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !user.Role.AtLeast(min) {
			abortError(c, http.StatusForbidden, "Insufficient role for this operation")
			return
		}
		c.Next()
	}
}

func abortError(c *gin.Context, code int32, message string) {
	c.AbortWithStatusJSON(int(code), api.Error{Code: code, Message: message})
}
