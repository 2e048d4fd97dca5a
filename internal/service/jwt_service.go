package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService emite y valida los tokens de acceso del panel de administración.
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
}

// Claims transporta la identidad y el alcance de datos del administrador.
type Claims struct {
	UserID      string   `json:"uid"`
	LoginID     string   `json:"login_id"`
	OrgID       string   `json:"org_id,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    "admin-sys",
	}
}

// AccessTTL expone la vigencia del token para armar la respuesta de login.
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateAccessToken firma un token de acceso para el usuario autenticado.
func (s *JWTService) GenerateAccessToken(user UserView) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrJWTInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID:      user.ID,
		LoginID:     user.LoginID,
		OrgID:       user.OrgID,
		Authorities: user.Authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseAccessToken valida firma y vigencia y devuelve los claims.
func (s *JWTService) ParseAccessToken(tokenStr string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrJWTInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	if !token.Valid {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}
