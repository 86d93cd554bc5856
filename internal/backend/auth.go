/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// Bearer tokens are "<base64url(claims)>.<base64url(hmac-sha256)>".
type tokenClaims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"` // unix seconds
}

// subjectKey is the fiber.Ctx local holding the verified token subject.
const subjectKey = "auth.subject"

// SignToken issues a token for subject valid until exp.
func SignToken(secret, subject string, exp time.Time) (string, error) {
	b, err := json.Marshal(tokenClaims{Sub: subject, Exp: exp.Unix()})
	if err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(b)
	return base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func verifyToken(secret, token string, now time.Time) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", errors.New("invalid token format")
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid token payload")
	}
	sigB, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("invalid token signature")
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payloadB)
	if !hmac.Equal(h.Sum(nil), sigB) {
		return "", errors.New("bad signature")
	}
	var claims tokenClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil {
		return "", errors.New("bad claims")
	}
	if claims.Exp < now.Unix() {
		return "", errors.New("token expired")
	}
	if claims.Sub == "" {
		claims.Sub = "dev"
	}
	return claims.Sub, nil
}

// requireAuth rejects requests without a valid bearer token.
func requireAuth(secret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		const prefix = "bearer "
		if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		sub, err := verifyToken(secret, strings.TrimSpace(auth[len(prefix):]), time.Now())
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(subjectKey, sub)
		return c.Next()
	}
}
