package myjwt

import (
	"errors"
	"strings"
	"time"

	"SurfSense/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptyKey = errors.New("jwt key is empty")

type CustomClaims struct {
	Uuid     string `json:"uuid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func GenerateToken(conf config.JwtConfig, uuid string, username string) (string, error) {
	if conf.Key == "" {
		return "", ErrEmptyKey
	}
	if strings.TrimSpace(uuid) == "" {
		return "", errors.New("uuid is empty")
	}
	expireHours := conf.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}
	issuer := conf.Issuer
	if issuer == "" {
		issuer = "surfsense"
	}

	now := time.Now()
	claims := CustomClaims{
		Uuid:     uuid,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(conf.Key))
}

// ParseToken 只接受 HMAC 签名，配置了 issuer 时同时校验
func ParseToken(conf config.JwtConfig, tokenString string) (*CustomClaims, error) {
	if conf.Key == "" {
		return nil, ErrEmptyKey
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if conf.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(conf.Key), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Uuid == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
