// Package auth implements JWT token validation for the HTTP auth middleware.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/holaphone/order-service/pkg/middleware"
)

// NewJWTValidator returns a TokenValidator that verifies HMAC-signed tokens
// against the shared secret and extracts the identity claims.
func NewJWTValidator(secret string) middleware.TokenValidator {
	key := []byte(secret)
	return func(tokenString string) (*middleware.Claims, error) {
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return nil, jwt.ErrTokenInvalidClaims
		}

		mapClaims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, jwt.ErrTokenInvalidClaims
		}

		userID, _ := mapClaims["user_id"].(string)
		if userID == "" {
			// Tokens issued before the user_id claim carry the subject only.
			userID, _ = mapClaims["sub"].(string)
		}
		if userID == "" {
			return nil, fmt.Errorf("token missing user identity")
		}

		email, _ := mapClaims["email"].(string)
		role, _ := mapClaims["role"].(string)

		return &middleware.Claims{
			UserID: userID,
			Email:  email,
			Role:   role,
		}, nil
	}
}
