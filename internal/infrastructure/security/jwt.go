package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleBroadcaster marks tokens that may fire events and mutate episodes.
const RoleBroadcaster = "broadcaster"

// RoleViewer marks tokens carrying a viewer identity only.
const RoleViewer = "viewer"

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateToken creates a signed token for the given subject and role.
func GenerateToken(subject, role, jwtSecret string, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().UTC().Unix(),
		"exp":  time.Now().UTC().Add(lifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// SubjectFromClaims extracts the subject and role strings from claims.
func SubjectFromClaims(claims jwt.MapClaims) (subject, role string) {
	if sub, ok := claims["sub"].(string); ok {
		subject = sub
	}
	if r, ok := claims["role"].(string); ok {
		role = r
	}
	return subject, role
}
