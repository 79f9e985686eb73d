package httpapi

import (
	"encoding/base64"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lectern-labs/lectern/internal/core/domain"
)

// Auth headers asserted by the trusted reverse proxy. Values are
// base64-encoded so arbitrary unicode survives the header encoding;
// roles are a comma-separated list inside the encoded value.
const (
	HeaderUsername    = "x-lectern-username"
	HeaderDisplayName = "x-lectern-display-name"
	HeaderRoles       = "x-lectern-roles"

	// HeaderRequestID carries the per-request correlation ID.
	HeaderRequestID = "x-request-id"
)

const userKey = "lectern.user"

// RequestID tags every request with a correlation ID, honouring one set
// by the proxy.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set("lectern.request_id", id)
		c.Next()
	}
}

// TrustedHeaderAuth resolves the proxy's identity headers into a user.
// Requests without a username run as anonymous; a header that does not
// decode is treated as absent rather than failing the request.
func TrustedHeaderAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := decodeHeader(c.GetHeader(HeaderUsername))
		if !ok || username == "" {
			c.Set(userKey, &domain.Anonymous)
			c.Next()
			return
		}

		displayName, _ := decodeHeader(c.GetHeader(HeaderDisplayName))
		user := &domain.User{
			Username:    username,
			DisplayName: displayName,
			Roles:       []string{domain.RoleAnonymous},
		}
		if encoded, ok := decodeHeader(c.GetHeader(HeaderRoles)); ok {
			for _, role := range strings.Split(encoded, ",") {
				if role = strings.TrimSpace(role); role != "" {
					user.Roles = append(user.Roles, role)
				}
			}
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// UserFromContext returns the authenticated user, anonymous if none.
func UserFromContext(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*domain.User); ok {
			return user
		}
	}
	return &domain.Anonymous
}

func decodeHeader(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
