package jwttoken

import (
	authmw "datatrail/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims keeps what RequireAuth needs: the user id for the
// context and the token id for the revocation check.
func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID: claims.UserID,
		JTI:    claims.ID,
	}
}

// JWTServiceAdapter lets *JWTService satisfy authmw.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

var _ authmw.JWTValidator = (*JWTServiceAdapter)(nil)

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
