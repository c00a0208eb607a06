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

import "testing"

func TestAuthenticateLimiterAllowsBurstThenBlocks(t *testing.T) {
	limiter := NewAuthenticateLimiter()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("expected burst request %d to be allowed", i)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Error("expected the request past the burst to be throttled")
	}
}

func TestAuthenticateLimiterTracksKeysIndependently(t *testing.T) {
	limiter := NewAuthenticateLimiter()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("expected burst request %d for first key to be allowed", i)
		}
	}
	if !limiter.Allow("5.6.7.8") {
		t.Error("expected a different key to have its own independent budget")
	}
}
