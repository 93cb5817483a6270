package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/spire-panel/spire/identity"
)

// Context keys set by TokenMiddleware.
const (
	ctxUserKey = "authUser"
	ctxRoleKey = "authRole"
)

// automationUserID identifies requests authenticated with the panel API key.
const automationUserID = "automation"

// TokenMiddleware authenticates the request from its Authorization bearer
// token. Resolution order:
//  1. the panel API key, acting as the automation principal with the admin
//     role;
//  2. a locally-verified HS256 session JWT, when a secret is configured;
//  3. an opaque session token resolved through the identity provider.
//
// Users arriving with no role claim are bootstrapped onto the default role
// before the request proceeds.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			respondErr(c, Unauthorized("missing bearer token"))
			return
		}
		token := parts[1]

		if settings, err := s.Settings.GetSettings(c.Request.Context()); err == nil &&
			settings.APIKey != "" &&
			subtle.ConstantTimeCompare([]byte(settings.APIKey), []byte(token)) == 1 {
			c.Set(ctxUserKey, &identity.User{ID: automationUserID, Role: AdminRoleName})
			c.Set(ctxRoleKey, AdminRoleName)
			c.Next()
			return
		}

		var user *identity.User
		if s.JWTSecret != "" && strings.Count(token, ".") == 2 {
			u, err := s.userFromJWT(c, token)
			if err != nil {
				respondErr(c, Unauthorized("invalid session token"))
				return
			}
			user = u
		} else {
			u, err := s.Identity.ResolveSession(c.Request.Context(), token)
			if err != nil {
				respondErr(c, Unauthorized("invalid session token"))
				return
			}
			user = u
		}

		if user.Role == "" {
			updated, err := s.Identity.UpdateUserRole(c.Request.Context(), user.ID, DefaultRoleName)
			if err != nil {
				s.logger.Printf("auth: bootstrapping default role for %s: %v", user.ID, err)
				user.Role = DefaultRoleName
			} else {
				user = updated
			}
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxRoleKey, user.Role)
		c.Next()
	}
}

func (s *Server) userFromJWT(c *gin.Context, token string) (*identity.User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return nil, identity.ErrSessionInvalid
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, identity.ErrSessionInvalid
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, identity.ErrSessionInvalid
	}
	// The role claim always comes from the provider, not the token, so role
	// changes take effect without re-issuing sessions.
	return s.Identity.GetUser(c.Request.Context(), sub)
}

// currentUser returns the authenticated principal set by TokenMiddleware.
func currentUser(c *gin.Context) *identity.User {
	if v, ok := c.Get(ctxUserKey); ok {
		if u, ok := v.(*identity.User); ok {
			return u
		}
	}
	return nil
}

// currentRole returns the authenticated principal's role claim.
func currentRole(c *gin.Context) string {
	if v, ok := c.Get(ctxRoleKey); ok {
		if r, ok := v.(string); ok {
			return r
		}
	}
	return ""
}
