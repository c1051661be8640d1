package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://clerk.hayflow.test"
	testAudience = "hayflow-api"
)

type testKeyPair struct {
	privateKey *rsa.PrivateKey
	kid        string
}

func generateTestKeyPair(t *testing.T) *testKeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &testKeyPair{privateKey: privateKey, kid: "test-key-id-123"}
}

func createMockJWKSServer(t *testing.T, keyPair *testKeyPair) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pub := keyPair.privateKey.PublicKey
		jwks := map[string]interface{}{
			"keys": []map[string]interface{}{
				{
					"kty": "RSA",
					"use": "sig",
					"kid": keyPair.kid,
					"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
					"alg": "RS256",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
}

func createTestToken(t *testing.T, keyPair *testKeyPair, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyPair.kid
	s, err := token.SignedString(keyPair.privateKey)
	require.NoError(t, err)
	return s
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":      testIssuer,
		"aud":      testAudience,
		"sub":      "user_2abc",
		"exp":      time.Now().Add(time.Hour).Unix(),
		"nbf":      time.Now().Add(-time.Minute).Unix(),
		"iat":      time.Now().Unix(),
		"name":     "Dana Driver",
		"email":    "dana@example.com",
		"org_id":   "org_farm1",
		"org_role": "org:driver",
	}
}

func newValidator(serverURL string) *auth.JWTValidator {
	return auth.NewJWTValidator(&config.IdentityConfig{
		JWKSURL:  serverURL,
		Issuer:   testIssuer,
		Audience: testAudience,
	})
}

func TestJWTValidator_ValidToken(t *testing.T) {
	keyPair := generateTestKeyPair(t)
	server := createMockJWKSServer(t, keyPair)
	defer server.Close()

	userCtx, err := newValidator(server.URL).ValidateToken(createTestToken(t, keyPair, baseClaims()))

	require.NoError(t, err)
	assert.Equal(t, "user_2abc", userCtx.UserID)
	assert.Equal(t, "org_farm1", userCtx.OrgID)
	assert.Equal(t, domain.RoleDriver, userCtx.Role)
	assert.Equal(t, "Dana Driver", userCtx.DisplayName)
	assert.True(t, userCtx.HasPermission(domain.PermissionTicketsCreate))
	assert.False(t, userCtx.HasPermission(domain.PermissionTicketsManage))
}

func TestJWTValidator_ExplicitPermissions(t *testing.T) {
	keyPair := generateTestKeyPair(t)
	server := createMockJWKSServer(t, keyPair)
	defer server.Close()

	claims := baseClaims()
	claims["org_permissions"] = []interface{}{"org:tickets:create", "org:tickets:manage"}

	userCtx, err := newValidator(server.URL).ValidateToken(createTestToken(t, keyPair, claims))

	require.NoError(t, err)
	assert.True(t, userCtx.HasPermission(domain.PermissionTicketsManage))
	assert.False(t, userCtx.HasPermission(domain.PermissionInvoicesManage))
}

func TestJWTValidator_CompactOrgClaim(t *testing.T) {
	keyPair := generateTestKeyPair(t)
	server := createMockJWKSServer(t, keyPair)
	defer server.Close()

	claims := baseClaims()
	delete(claims, "org_id")
	delete(claims, "org_role")
	claims["o"] = map[string]interface{}{"id": "org_farm2", "rol": "bookkeeper", "per": []interface{}{}}

	userCtx, err := newValidator(server.URL).ValidateToken(createTestToken(t, keyPair, claims))

	require.NoError(t, err)
	assert.Equal(t, "org_farm2", userCtx.OrgID)
	assert.Equal(t, domain.RoleBookkeeper, userCtx.Role)
	assert.True(t, userCtx.HasPermission(domain.PermissionInvoicesManage))
}

func TestJWTValidator_Rejections(t *testing.T) {
	keyPair := generateTestKeyPair(t)
	server := createMockJWKSServer(t, keyPair)
	defer server.Close()

	tests := []struct {
		name    string
		mutate  func(jwt.MapClaims)
		wantErr error
	}{
		{"expired", func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }, auth.ErrExpiredToken},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "someone-else" }, auth.ErrInvalidToken},
		{"wrong issuer", func(c jwt.MapClaims) { c["iss"] = "https://evil.example" }, auth.ErrInvalidToken},
		{"missing subject", func(c jwt.MapClaims) { delete(c, "sub") }, auth.ErrInvalidToken},
		{"missing expiry", func(c jwt.MapClaims) { delete(c, "exp") }, auth.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			tt.mutate(claims)

			userCtx, err := newValidator(server.URL).ValidateToken(createTestToken(t, keyPair, claims))

			assert.Nil(t, userCtx)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTValidator_UnknownSigningKey(t *testing.T) {
	keyPair := generateTestKeyPair(t)
	server := createMockJWKSServer(t, keyPair)
	defer server.Close()

	other := generateTestKeyPair(t)
	other.kid = "unknown-kid"

	_, err := newValidator(server.URL).ValidateToken(createTestToken(t, other, baseClaims()))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTValidator_RejectsHMAC(t *testing.T) {
	keyPair := generateTestKeyPair(t)
	server := createMockJWKSServer(t, keyPair)
	defer server.Close()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims())
	token.Header["kid"] = keyPair.kid
	s, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = newValidator(server.URL).ValidateToken(s)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
