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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the denylist §9's design notes call out: token
// revocation is impossible with a pure signed-session design, so
// invalidate marks a token id as spent for the remainder of its natural
// lifetime. A nil redis client degrades to pure-JWT validation, exactly as
// the design notes describe.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, ttl time.Duration)
	IsRevoked(ctx context.Context, token string) bool
}

type revocationStore struct {
	client *redis.Client
}

func NewRevocationStore(client *redis.Client) RevocationStore {
	return &revocationStore{client: client}
}

func tokenID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:16])
}

func (r *revocationStore) Revoke(ctx context.Context, token string, ttl time.Duration) {
	if r.client == nil {
		return
	}
	if err := r.client.Set(ctx, tokenID(token), "1", ttl).Err(); err != nil {
		log.Printf("revocation store: failed to record invalidated token: %v", err)
	}
}

func (r *revocationStore) IsRevoked(ctx context.Context, token string) bool {
	if r.client == nil {
		return false
	}
	n, err := r.client.Exists(ctx, tokenID(token)).Result()
	if err != nil {
		log.Printf("revocation store: lookup failed, treating token as live: %v", err)
		return false
	}
	return n > 0
}
