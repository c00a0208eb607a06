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

// ProfileMapping binds a player identity as seen by one upstream backend to
// the identity the proxy hands out to game clients. A row is written the
// first time the translator sees a given (backend_id, src_uuid) pair and
// updated in place on rename; rows are never deleted.
type ProfileMapping struct {
	ID       uint   `gorm:"primarykey"`
	BackendID string `gorm:"column:backend_id;size:64;not null;uniqueIndex:src_index;uniqueIndex:src_id_index"`
	SrcUUID  string `gorm:"column:src_uuid;size:32;not null;uniqueIndex:src_id_index"`
	SrcName  string `gorm:"column:src_name;size:64;not null;uniqueIndex:src_index"`
	UUID     string `gorm:"column:uuid;size:32;not null;uniqueIndex"`
	Name     string `gorm:"column:name;size:128;not null;uniqueIndex"`
}

func (ProfileMapping) TableName() string {
	return "profiles"
}
