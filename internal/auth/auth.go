package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

var ErrInvalidAPIKey = errors.New("invalid api key")

type Claims struct {
	Subject string `json:"sub_name"`
	jwt.StandardClaims
}

// Service issues and validates the bearer tokens that protect the control
// surface. Callers trade the configured API key for a short-lived JWT.
type Service struct {
	secret []byte
	apiKey string
}

func NewService(jwtSecret, apiKey string) *Service {
	return &Service{secret: []byte(jwtSecret), apiKey: apiKey}
}

// IssueToken exchanges a valid API key for a signed token good for 24 hours.
func (s *Service) IssueToken(apiKey string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.apiKey)) != 1 {
		return "", ErrInvalidAPIKey
	}

	claims := Claims{
		Subject: "healthwatch-api",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Middleware accepts either a bearer JWT from IssueToken or the raw API key
// in the X-API-Key header, so scripts can skip the token exchange.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-Key"); key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1 {
				c.Next()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			c.Abort()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
