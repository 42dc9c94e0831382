package middleware

import (
	"frontdesk/internal/entity"
	jwtPkg "frontdesk/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"strings"
)

const (
	SupervisorTokenSecret = "SUPERVISOR_JWT_SECRET"
)

type tokenMiddleware struct {
	secretEnvKey string
}

func newTokenMiddleware(secretEnvKey string) *tokenMiddleware {
	return &tokenMiddleware{
		secretEnvKey: secretEnvKey,
	}
}

func logrusFields(requestID string, ctx *fiber.Ctx) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"method":     ctx.Method(),
		"client_ip":  ctx.IP(),
	}
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
		"code":  "UNAUTHORIZED",
	})
}

// NewTokenMiddleware admits supervisors holding a token signed with
// SUPERVISOR_JWT_SECRET that names them in its "name" claim.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	fields := logrusFields(m.GetRequestID(ctx), ctx)

	token, err := jwtPkg.VerifyTokenHeader(ctx, m.token.secretEnvKey)
	if err != nil {
		fields["error"] = err.Error()
		m.log.WithFields(fields).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		m.log.WithFields(fields).Warn("Invalid token claims")
		return unauthorized(ctx)
	}

	name, _ := claims["name"].(string)
	if strings.TrimSpace(name) == "" {
		m.log.WithFields(fields).Warn("Token is missing the supervisor name")
		return unauthorized(ctx)
	}

	id, _ := claims["sub"].(string)
	if id == "" {
		id, _ = claims["id"].(string)
	}

	ctx.Locals(jwtPkg.SupervisorLocalsKey, entity.SupervisorLoginData{
		ID:   id,
		Name: strings.TrimSpace(name),
	})

	m.log.WithFields(fields).Debug("Supervisor authenticated")
	return ctx.Next()
}
