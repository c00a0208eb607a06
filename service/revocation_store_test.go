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
	"testing"
	"time"
)

// Without a configured redis client the store degrades to pure-JWT
// validation: Revoke is a no-op and nothing is ever reported as revoked.
func TestRevocationStoreNilClientDegradesGracefully(t *testing.T) {
	store := NewRevocationStore(nil)
	ctx := context.Background()

	store.Revoke(ctx, "some-token", time.Hour)

	if store.IsRevoked(ctx, "some-token") {
		t.Fatal("expected a nil-backed revocation store to never report a token as revoked")
	}
}

func TestTokenIDIsStableAndDeterministic(t *testing.T) {
	a := tokenID("token-a")
	b := tokenID("token-a")
	c := tokenID("token-b")

	if a != b {
		t.Error("expected the same token to hash to the same id")
	}
	if a == c {
		t.Error("expected different tokens to hash to different ids")
	}
}
