package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenClaims is the JWT payload carried on every authenticated request.
type AccessTokenClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AccessTokenPayload captures the inputs for minting a token.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	Role     string
}
