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

package model

// SessionClaims is the self-contained document carried inside the access
// token handed to game clients. Holding every per-upstream token makes the
// proxy stateless: there is no server-side session to coordinate between
// replicas, the token itself is the session.
type SessionClaims struct {
	// Tokens maps backend id to the upstream access token obtained for it.
	Tokens map[string]string `json:"tokens"`
	// Uuids maps a proxy-visible profile uuid to the backend that owns it.
	Uuids map[string]string `json:"uuids"`
	// Selected marks, per backend, whether its upstream token already has
	// a profile bound to it.
	Selected map[string]bool `json:"selected"`
	// SelectedUUID is the proxy uuid the client has committed to, or empty
	// when no profile has been selected yet.
	SelectedUUID string `json:"selected_uuid,omitempty"`
}

// Backend returns the backend owning the currently selected profile, and
// whether a profile is selected at all.
func (c *SessionClaims) Backend() (string, bool) {
	if c.SelectedUUID == "" {
		return "", false
	}
	backend, ok := c.Uuids[c.SelectedUUID]
	return backend, ok
}
