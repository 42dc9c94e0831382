package jwtPkg

import (
	"errors"
	"fmt"
	"frontdesk/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"os"
	"strings"
	"time"
)

const SupervisorLocalsKey = "supervisor"

func Sign(Data map[string]interface{}, ExpiredAt time.Duration, secretEnvKey string) (string, int64, error) {
	expiredAt := time.Now().Add(ExpiredAt).Unix()

	JWTSecretKey := os.Getenv(secretEnvKey)
	if JWTSecretKey == "" {
		return "", 0, fmt.Errorf("%s not set", secretEnvKey)
	}

	claims := jwt.MapClaims{}
	claims["exp"] = expiredAt
	claims["authorization"] = true

	for i, v := range Data {
		claims[i] = v
	}

	logrus.WithField("claims", claims).Debug("Creating token with claims")

	to := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := to.SignedString([]byte(JWTSecretKey))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign token")
		return "", 0, err
	}

	return accessToken, expiredAt, nil
}

// VerifyTokenHeader reads the bearer token from the Authorization header, or
// from the "token" query parameter on WebSocket upgrades where browsers cannot
// set headers.
func VerifyTokenHeader(c *fiber.Ctx, secretEnvKey string) (*jwt.Token, error) {
	log := logrus.WithField("func", "VerifyTokenHeader")

	header := c.Get("Authorization")
	if header == "" {
		if queryToken := c.Query("token"); queryToken != "" {
			return VerifyToken(queryToken, secretEnvKey)
		}
		log.Debug("Empty Authorization header")
		return nil, errors.New("empty Authorization header")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		log.Debug("Invalid Authorization format")
		return nil, errors.New("invalid Authorization format")
	}

	accessToken := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if accessToken == "" {
		log.Debug("Empty token after Bearer")
		return nil, errors.New("empty token")
	}

	return VerifyToken(accessToken, secretEnvKey)
}

func VerifyToken(accessToken string, secretEnvKey string) (*jwt.Token, error) {
	JWTSecretKey := os.Getenv(secretEnvKey)
	if JWTSecretKey == "" {
		logrus.WithField("env", secretEnvKey).Error("JWT secret environment variable not set")
		return nil, errors.New("JWT secret not configured")
	}

	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

func GetSupervisorLoginData(c *fiber.Ctx) (entity.SupervisorLoginData, error) {
	supervisorData := c.Locals(SupervisorLocalsKey)

	supervisor, ok := supervisorData.(entity.SupervisorLoginData)
	if !ok {
		return entity.SupervisorLoginData{}, fiber.ErrUnauthorized
	}

	return supervisor, nil
}
