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
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ygg-federation/model"
)

func newTestProfileStore(t *testing.T) ProfileStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&model.ProfileMapping{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return NewProfileStore(db)
}

func TestProfileStoreUpsertAndLookup(t *testing.T) {
	store := newTestProfileStore(t)
	ctx := context.Background()

	row := &model.ProfileMapping{
		BackendID: "main",
		SrcUUID:   "11111111111111111111111111111111",
		SrcName:   "Steve",
		UUID:      "22222222222222222222222222222222",
		Name:      "main_Steve",
	}
	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	byUUID, err := store.FindByUUID(ctx, row.UUID)
	if err != nil {
		t.Fatalf("find by uuid failed: %v", err)
	}
	if byUUID.SrcName != "Steve" {
		t.Errorf("expected src name Steve, got %s", byUUID.SrcName)
	}

	byBackend, err := store.FindByBackendAndSrcUUID(ctx, "main", row.SrcUUID)
	if err != nil {
		t.Fatalf("find by backend+src uuid failed: %v", err)
	}
	if byBackend.Name != "main_Steve" {
		t.Errorf("expected name main_Steve, got %s", byBackend.Name)
	}

	byName, err := store.FindByName(ctx, "main_Steve")
	if err != nil {
		t.Fatalf("find by name failed: %v", err)
	}
	if byName.UUID != row.UUID {
		t.Errorf("expected uuid %s, got %s", row.UUID, byName.UUID)
	}
}

func TestProfileStoreNotFound(t *testing.T) {
	store := newTestProfileStore(t)
	ctx := context.Background()

	_, err := store.FindByUUID(ctx, "does-not-exist")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfileStoreUpsertUpdatesInPlace(t *testing.T) {
	store := newTestProfileStore(t)
	ctx := context.Background()

	row := &model.ProfileMapping{
		BackendID: "main",
		SrcUUID:   "11111111111111111111111111111111",
		SrcName:   "Steve",
		UUID:      "22222222222222222222222222222222",
		Name:      "main_Steve",
	}
	if err := store.Upsert(ctx, row); err != nil {
		t.Fatalf("initial upsert failed: %v", err)
	}

	found, err := store.FindByBackendAndSrcUUID(ctx, "main", row.SrcUUID)
	if err != nil {
		t.Fatalf("lookup before rename failed: %v", err)
	}
	found.SrcName = "SteveRenamed"
	found.Name = "main_SteveRenamed"
	if err := store.Upsert(ctx, found); err != nil {
		t.Fatalf("rename upsert failed: %v", err)
	}

	byUUID, err := store.FindByUUID(ctx, row.UUID)
	if err != nil {
		t.Fatalf("lookup after rename failed: %v", err)
	}
	if byUUID.Name != "main_SteveRenamed" {
		t.Errorf("expected renamed name, got %s", byUUID.Name)
	}
}
