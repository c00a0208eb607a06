/*
 * Copyright (C) 2022-2025. Gardel <gardel741@outlook.com> and contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ygg-federation/model"
)

// sessionLifetime is refreshed to now+7 days on every mint, per the session
// claims contract.
const sessionLifetime = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// sessionTokenClaims embeds the wire claims document inside jwt's registered
// claim set so exp is carried the way golang-jwt expects it.
type sessionTokenClaims struct {
	jwt.RegisteredClaims
	Tokens       map[string]string `json:"tokens"`
	Uuids        map[string]string `json:"uuids"`
	Selected     map[string]bool   `json:"selected"`
	SelectedUUID string            `json:"selected_uuid,omitempty"`
}

// TokenCodec signs and verifies the session claims document carried as the
// opaque access token between the game client and the proxy.
type TokenCodec interface {
	// Mint is infallible: any signing error here would mean the HMAC key
	// itself is unusable, which is a startup-time condition, not a
	// per-request one.
	Mint(claims *model.SessionClaims) string
	Verify(token string) (*model.SessionClaims, error)
}

type tokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret []byte) TokenCodec {
	return &tokenCodec{secret: secret}
}

func (t *tokenCodec) Mint(claims *model.SessionClaims) string {
	now := time.Now()
	wire := sessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Tokens:       claims.Tokens,
		Uuids:        claims.Uuids,
		Selected:     claims.Selected,
		SelectedUUID: claims.SelectedUUID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		// The only failure mode for HS256 signing is an unusable key,
		// which would also have failed at startup.
		panic(err)
	}
	return signed
}

func (t *tokenCodec) Verify(token string) (*model.SessionClaims, error) {
	wire := sessionTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, &wire, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if wire.Tokens == nil || wire.Uuids == nil || wire.Selected == nil {
		return nil, ErrInvalidToken
	}
	return &model.SessionClaims{
		Tokens:       wire.Tokens,
		Uuids:        wire.Uuids,
		Selected:     wire.Selected,
		SelectedUUID: wire.SelectedUUID,
	}, nil
}
