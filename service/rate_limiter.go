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
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// AuthenticateLimiter throttles authenticate attempts per client key
// (normally the client IP), so one misbehaving client can't turn every
// authenticate call into N upstream fan-outs.
type AuthenticateLimiter interface {
	Allow(key string) bool
}

type authenticateLimiter struct {
	cache *lru.Cache
	rps   float64
	burst int
}

func NewAuthenticateLimiter() AuthenticateLimiter {
	cache, _ := lru.New(10000)
	return &authenticateLimiter{cache: cache, rps: 0.2, burst: 3}
}

func (l *authenticateLimiter) Allow(key string) bool {
	if value, ok := l.cache.Get(key); ok {
		if limiter, ok := value.(*rate.Limiter); ok {
			return limiter.Allow()
		}
		l.cache.Remove(key)
	}
	limiter := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.cache.Add(key, limiter)
	return limiter.Allow()
}
