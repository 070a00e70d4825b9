package models

import "github.com/golang-jwt/jwt/v5"

// RoleRegistrar may import catalogs, register students and create enrollments.
const RoleRegistrar = "registrar"

// JWTClaims are the claims carried by registry API tokens.
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
