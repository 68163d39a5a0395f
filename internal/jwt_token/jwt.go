package jwttoken

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "datatrail/pkg/domain-errors"
)

// Claims represents the JWT claims for our access tokens. The personal claims
// are what the audit trail reads to name the actor.
type Claims struct {
	UserID         int64  `json:"user_id"`
	Identificacion string `json:"identificacion,omitempty"`
	Nombres        string `json:"nombres,omitempty"`
	Apellidos      string `json:"apellidos,omitempty"`
	jwt.RegisteredClaims
}

// Subject is the person a token is issued to.
type Subject struct {
	UserID    int64
	Nombres   string
	Apellidos string
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
}

// GenerateAccessToken signs an HS256 token for sub. The returned claims carry
// the generated token id.
func (s *JWTService) GenerateAccessToken(sub Subject, expiresIn time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:         sub.UserID,
		Identificacion: strconv.FormatInt(sub.UserID, 10),
		Nombres:        sub.Nombres,
		Apellidos:      sub.Apellidos,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sub.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, err
	}
	return signedToken, claims, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.UserID <= 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no user")
	}

	return claims, nil
}
