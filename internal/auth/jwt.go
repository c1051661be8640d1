package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jakecourtright/HayFlow/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// minRefreshInterval stops unknown kids from hammering the JWKS endpoint
const minRefreshInterval = 30 * time.Second

// Claims are the session token claims issued by the identity provider
type Claims struct {
	jwt.RegisteredClaims
	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	OrgID          string   `json:"org_id,omitempty"`
	OrgRole        string   `json:"org_role,omitempty"`
	OrgPermissions []string `json:"org_permissions,omitempty"`
	// Org is the compact organization claim used by newer session tokens
	Org *struct {
		ID          string   `json:"id"`
		Role        string   `json:"rol"`
		Permissions []string `json:"per"`
	} `json:"o,omitempty"`
}

// JWTValidator validates RS256 bearer tokens against a JWKS endpoint
type JWTValidator struct {
	config     *config.IdentityConfig
	httpClient *http.Client

	mu          sync.RWMutex
	publicKeys  map[string]*rsa.PublicKey
	lastUpdate  time.Time
	lastAttempt time.Time
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.IdentityConfig) *JWTValidator {
	return &JWTValidator{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		publicKeys: make(map[string]*rsa.PublicKey),
	}
}

// ValidateToken validates a JWT and returns the user context it carries
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claimsToUser(claims), nil
}

func claimsToUser(claims *Claims) *UserContext {
	user := &UserContext{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		OrgID:       claims.OrgID,
		Role:        ParseRole(claims.OrgRole),
	}
	perms := claims.OrgPermissions
	if claims.Org != nil && user.OrgID == "" {
		user.OrgID = claims.Org.ID
		user.Role = ParseRole(claims.Org.Role)
		perms = claims.Org.Permissions
	}
	for _, p := range perms {
		user.Permissions = append(user.Permissions, ParsePermission(p))
	}
	return user
}

func (v *JWTValidator) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, errors.New("missing kid in header")
	}
	return v.getPublicKey(kid)
}

func (v *JWTValidator) getPublicKey(kid string) (*rsa.PublicKey, error) {
	ttl := v.config.JWKSCacheDuration()
	if ttl == 0 {
		ttl = time.Hour
	}

	v.mu.RLock()
	key, exists := v.publicKeys[kid]
	fresh := time.Since(v.lastUpdate) < ttl
	v.mu.RUnlock()
	if exists && fresh {
		return key, nil
	}

	if err := v.refreshPublicKeys(context.Background()); err != nil {
		if exists {
			return key, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, exists = v.publicKeys[kid]
	if !exists {
		return nil, fmt.Errorf("public key not found for kid: %s", kid)
	}
	return key, nil
}

type jwks struct {
	Keys []struct {
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
		Kty string `json:"kty"`
		Use string `json:"use"`
	} `json:"keys"`
}

func (v *JWTValidator) refreshPublicKeys(ctx context.Context) error {
	v.mu.Lock()
	if time.Since(v.lastAttempt) < minRefreshInterval && len(v.publicKeys) > 0 {
		v.mu.Unlock()
		return nil
	}
	v.lastAttempt = time.Now()
	v.mu.Unlock()

	if v.config.JWKSURL == "" {
		return errors.New("identity JWKS URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.JWKSURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	newKeys := make(map[string]*rsa.PublicKey)
	for _, key := range set.Keys {
		if key.Kty != "RSA" || (key.Use != "" && key.Use != "sig") {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			continue
		}
		e := 0
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}
		newKeys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}
	}

	v.mu.Lock()
	v.publicKeys = newKeys
	v.lastUpdate = time.Now()
	v.mu.Unlock()
	return nil
}
