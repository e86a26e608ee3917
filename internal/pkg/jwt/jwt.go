package jwtToken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID     uuid.UUID
	IsVerified bool
}

func New(
	userID uuid.UUID,
	isVerified bool,
	tokenTTL time.Duration,
	secret []byte,
) (
	string,
	error,
) {
	token := jwt.New(jwt.SigningMethodHS256)

	now := time.Now()

	claims := token.Claims.(jwt.MapClaims)
	claims["sub"] = userID.String()
	claims["is_verified"] = isVerified
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(tokenTTL).Unix()

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func VerifyToken(tokenString string, secret []byte) (Claims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad subject: %w", ErrInvalidToken, err)
	}

	verified, _ := claims["is_verified"].(bool)

	return Claims{
		UserID:     userID,
		IsVerified: verified,
	}, nil
}
