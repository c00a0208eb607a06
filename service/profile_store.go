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
	"errors"
	"time"

	"gorm.io/gorm"

	"ygg-federation/model"
)

// queryTimeout bounds every store round trip; it matches the idle timeout
// the connection pool is configured with in main.
const queryTimeout = 8 * time.Second

var ErrProfileNotFound = errors.New("profile mapping not found")

// ProfileStore persists the bidirectional mapping between a backend's own
// profile identity and the identity the proxy hands out to clients.
type ProfileStore interface {
	FindByBackendAndSrcUUID(ctx context.Context, backendID, srcUUID string) (*model.ProfileMapping, error)
	FindByUUID(ctx context.Context, uuid string) (*model.ProfileMapping, error)
	FindByName(ctx context.Context, name string) (*model.ProfileMapping, error)
	// FindBySrcName returns the row whose backend_id is the main backend and
	// whose src_name matches. Used only for master/slave hasJoined routing.
	FindBySrcName(ctx context.Context, mainBackendID, srcName string) (*model.ProfileMapping, error)
	Upsert(ctx context.Context, row *model.ProfileMapping) error
}

type profileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) ProfileStore {
	return &profileStore{db: db}
}

func (s *profileStore) FindByBackendAndSrcUUID(ctx context.Context, backendID, srcUUID string) (*model.ProfileMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var row model.ProfileMapping
	err := s.db.WithContext(ctx).Where("backend_id = ? AND src_uuid = ?", backendID, srcUUID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *profileStore) FindByUUID(ctx context.Context, uuid string) (*model.ProfileMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var row model.ProfileMapping
	err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *profileStore) FindByName(ctx context.Context, name string) (*model.ProfileMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var row model.ProfileMapping
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *profileStore) FindBySrcName(ctx context.Context, mainBackendID, srcName string) (*model.ProfileMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var row model.ProfileMapping
	err := s.db.WithContext(ctx).Where("backend_id = ? AND src_name = ?", mainBackendID, srcName).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes a new row, or updates src_name/name in place when the row
// already carries a primary key. Uniqueness violations are surfaced to the
// caller unchanged; the store does not paper over them.
func (s *profileStore) Upsert(ctx context.Context, row *model.ProfileMapping) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.db.WithContext(ctx).Save(row).Error
}
