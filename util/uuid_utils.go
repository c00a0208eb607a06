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

package util

import (
	"strings"

	"github.com/google/uuid"
)

// UnsignedString serializes a UUID the way the Yggdrasil wire format wants
// it: 32 lowercase hex digits, no dashes.
func UnsignedString(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

// NewUnsignedUUID allocates a fresh random (v4) UUID in the same no-dash
// hex form.
func NewUnsignedUUID() string {
	return UnsignedString(uuid.New())
}
