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

	"ygg-federation/dto"
	"ygg-federation/model"
)

func TestPreProxyRefreshRejectsDoubleProfileAssignment(t *testing.T) {
	store := newTestProfileStore(t)
	pre := NewPreProxy(store, "main", false)

	claims := &model.SessionClaims{
		Tokens:       map[string]string{"main": "up-token"},
		Uuids:        map[string]string{"uuid-1": "main"},
		Selected:     map[string]bool{"main": true},
		SelectedUUID: "uuid-1",
	}
	req := dto.RefreshRequest{SelectedProfile: &dto.ProfileResponse{Id: "uuid-2", Name: "Other"}}

	_, _, err := pre.Refresh(context.Background(), claims, req)
	if err == nil {
		t.Fatal("expected an error when selecting a profile on a token that already has one")
	}
}

func TestPreProxyJoinRejectsMismatchedProfile(t *testing.T) {
	store := newTestProfileStore(t)
	pre := NewPreProxy(store, "main", false)

	claims := &model.SessionClaims{
		Tokens:       map[string]string{"main": "up-token"},
		Uuids:        map[string]string{"uuid-1": "main"},
		Selected:     map[string]bool{"main": true},
		SelectedUUID: "uuid-1",
	}
	req := dto.JoinServerRequest{SelectedProfile: "uuid-2", ServerId: "server-1"}

	_, _, err := pre.Join(context.Background(), claims, req)
	if err == nil {
		t.Fatal("expected an error when joining with a profile not selected on this token")
	}
}

func TestPreProxyProfilesMasterSlaveRoutesUnknownNamesToMain(t *testing.T) {
	store := newTestProfileStore(t)
	pre := NewPreProxy(store, "main", true)

	buckets, err := pre.Profiles(context.Background(), []string{"UnknownPlayer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets["main"]) != 1 || buckets["main"][0] != "UnknownPlayer" {
		t.Errorf("expected unknown name routed to main backend, got %+v", buckets)
	}
}

func TestPreProxyProfilesWithoutMasterSlaveDropsUnknownNames(t *testing.T) {
	store := newTestProfileStore(t)
	pre := NewPreProxy(store, "main", false)

	buckets, err := pre.Profiles(context.Background(), []string{"UnknownPlayer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 0 {
		t.Errorf("expected no buckets for an unknown name outside master/slave mode, got %+v", buckets)
	}
}
