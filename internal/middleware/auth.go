package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/pkg/supabase"
)

// TokenVerifier resolves a bearer token to the user it was issued for
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*supabase.User, error)
}

// Auth middleware to verify JWT tokens
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debug("authentication failed: missing authorization header")
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			log.Debug("authentication failed: invalid authorization format")
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
			return
		}

		user, err := verifier.VerifyToken(c.Request.Context(), parts[1])
		if err != nil {
			log.Warn("authentication failed: token verification error",
				logger.Err(err),
			)
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
			return
		}

		setUser(c, user.ID)
		c.Set("user_email", user.Email)

		log.Debug("authentication successful",
			logger.String("user_id", user.ID),
		)

		c.Next()
	}
}

// DevAuth authenticates every request as userID. Used when auth.provider is "none".
func DevAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setUser(c, userID)
		c.Next()
	}
}

func setUser(c *gin.Context, userID string) {
	c.Set("user_id", userID)

	// Services read the user ID from the request context as well
	ctx := logger.WithUserID(c.Request.Context(), userID)
	c.Request = c.Request.WithContext(ctx)
}

// UserID returns the authenticated user's ID set by Auth or DevAuth
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString("user_id")
	return id, id != ""
}
