package v1

import (
	"net/http"
	"strings"

	"github.com/Build-Your-Web-2025/SafeCity/internal/auth"
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/Build-Your-Web-2025/SafeCity/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionContextKey = "session"

// SessionMiddleware - middleware, разрешающее токен сессии в сессию.
// Токен опционален: запросы без токена проходят дальше анонимно.
// Разрешение принципала в сессию делегируется хранилищу сессий: роль,
// профиль и поведение при сбое загрузки определяются в одном месте.
func SessionMiddleware(provider auth.Provider, sessions *session.Store, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		principal, err := provider.ResolveToken(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Debug("Failed to resolve session token")
			c.Next()
			return
		}

		c.Set(sessionContextKey, sessions.Resolve(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireAuth требует аутентифицированную сессию
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sessionFromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole требует у сессии заданную роль. Привилегированные мутации
// шлюз сам не охраняет: допуск решается здесь, на границе HTTP.
func RequireRole(role models.Role, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if sess.Role != role {
			log.WithFields(logrus.Fields{
				"uid":      sess.UID,
				"required": role,
			}).Warn("Forbidden: insufficient role")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) (models.Session, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return models.Session{}, false
	}
	sess, ok := val.(models.Session)
	return sess, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// WebSocket-клиенты из браузера не могут выставить заголовок
	return c.Query("token")
}
