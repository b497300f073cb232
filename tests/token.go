package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	tokenKey = []byte("schooladmin.tests.backend")
	tokenTTL = time.Hour

	NowFunc = time.Now // mockable
)

// signToken issues an HS256 access token for userID, unique per call thanks to jti.
func signToken(userID, jti string) string {
	now := NowFunc()
	claims := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenKey)
	if err != nil {
		panic(err)
	}
	return token
}

// verifyToken checks the signature and the expiry of a token issued by signToken.
func verifyToken(token string) bool {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return tokenKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(NowFunc))
	return err == nil
}
