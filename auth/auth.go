// Copyright 2025 BrightClass
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth verifies bearer credentials and turns them into the
// Identity the rest of the core authorizes against. Credential issuance
// lives outside this core; this package only verifies.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"brightclass/aicore/shared/types"
)

// Verifier validates signed bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier over an HMAC signing secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth verifier requires a signing secret")
	}
	return &Verifier{secret: secret}, nil
}

// Verify parses and validates a token string, returning the caller's
// Identity. Any parse, signature, or claim problem fails verification;
// there are no partial identities.
func (v *Verifier) Verify(tokenString string) (types.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return types.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.Identity{}, fmt.Errorf("invalid token claims")
	}

	id := types.Identity{
		SubjectID: claimString(claims, "sub"),
		OrgID:     claimString(claims, "org_id"),
		Role:      types.Role(claimString(claims, "role")),
		Tier:      types.Tier(claimString(claims, "tier")),
		Guest:     claimBool(claims, "guest"),
	}

	if id.SubjectID == "" {
		return types.Identity{}, fmt.Errorf("token missing subject")
	}
	if !id.Guest && !id.Role.IsValid() {
		return types.Identity{}, fmt.Errorf("token carries unknown role %q", id.Role)
	}
	if !id.Tier.IsValid() {
		// A garbled tier never unlocks anything; treat it as free.
		id.Tier = types.TierFree
	}

	return id, nil
}

// VerifyRequest extracts and verifies the bearer credential on an HTTP
// request. WebSocket clients that cannot set headers may pass the token
// as the access_token query parameter instead.
func (v *Verifier) VerifyRequest(r *http.Request) (types.Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return types.Identity{}, fmt.Errorf("missing bearer credential")
	}
	return v.Verify(token)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

func claimString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}

func claimBool(claims jwt.MapClaims, key string) bool {
	if b, ok := claims[key].(bool); ok {
		return b
	}
	return false
}
