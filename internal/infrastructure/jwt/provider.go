package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sos-api/internal/config"
)

const (
	issuer = "sos-api"
	leeway = 30 * time.Second
)

// Claims is the bearer payload. Subject always equals UserID.
type Claims struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 bearer tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
	parser     *jwt.Parser
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	priv, err := loadKey(cfg.JWTPrivateKeyPath, jwt.ParseRSAPrivateKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pub, err := loadKey(cfg.JWTPublicKeyPath, jwt.ParseRSAPublicKeyFromPEM)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	if priv.PublicKey.N.Cmp(pub.N) != 0 {
		return nil, errors.New("public key does not match private key")
	}
	return &Provider{
		privateKey: priv,
		publicKey:  pub,
		expiry:     cfg.JWTExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}, nil
}

func loadKey[K any](path string, parse func([]byte) (K, error)) (K, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		var zero K
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return parse(raw)
}

// Sign issues a bearer for userID bound to sessionID.
func (p *Provider) Sign(userID, role, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign bearer: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry, and rejects tokens that do
// not name both a user and a session.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, err := p.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" || claims.Subject != claims.UserID {
		return nil, errors.New("incomplete bearer claims")
	}
	return claims, nil
}
