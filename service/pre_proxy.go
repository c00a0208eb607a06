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

	"ygg-federation/dto"
	"ygg-federation/model"
	"ygg-federation/util"
)

// PreProxy rewrites a client request into the upstream-shaped request(s) it
// must become, choosing the destination backend(s) along the way. Unlike
// Translator and PostProxy, it never talks to an upstream itself.
//
// This supersedes the non-master/slave variant of the same logic: every
// routing decision here accounts for enable_master_slave_mode.
type PreProxy interface {
	Refresh(ctx context.Context, claims *model.SessionClaims, req dto.RefreshRequest) (dst string, upstreamReq dto.RefreshRequest, err error)
	Join(ctx context.Context, claims *model.SessionClaims, req dto.JoinServerRequest) (dst string, upstreamReq dto.JoinServerRequest, err error)
	HasJoined(ctx context.Context, username, serverID string) (dst, srcUsername string, err error)
	Profile(ctx context.Context, uuid string) (dst, srcUUID string)
	Profiles(ctx context.Context, names []string) (map[string][]string, error)
}

type preProxy struct {
	store              ProfileStore
	mainBackend        string
	masterSlaveEnabled bool
}

func NewPreProxy(store ProfileStore, mainBackend string, masterSlaveEnabled bool) PreProxy {
	return &preProxy{store: store, mainBackend: mainBackend, masterSlaveEnabled: masterSlaveEnabled}
}

func (p *preProxy) Refresh(ctx context.Context, claims *model.SessionClaims, req dto.RefreshRequest) (string, dto.RefreshRequest, error) {
	var selectedUUID string
	if req.SelectedProfile != nil {
		if claims.SelectedUUID != "" {
			return "", dto.RefreshRequest{}, util.NewIllegalArgumentError("Access token already has a profile assigned.")
		}
		selectedUUID = req.SelectedProfile.Id
	} else {
		if claims.SelectedUUID == "" {
			return "", dto.RefreshRequest{}, util.NewForbiddenOperationError(util.MessageInvalidToken)
		}
		selectedUUID = claims.SelectedUUID
	}

	dst, ok := claims.Uuids[selectedUUID]
	if !ok {
		return "", dto.RefreshRequest{}, util.NewIllegalArgumentError("Invalid token.")
	}

	upstreamReq := req
	upstreamToken := claims.Tokens[dst]
	upstreamReq.AccessToken = upstreamToken

	if req.SelectedProfile != nil {
		if p.masterSlaveEnabled && dst == p.mainBackend {
			// pass through unchanged
		} else {
			row, err := p.store.FindByUUID(ctx, selectedUUID)
			if err != nil {
				return "", dto.RefreshRequest{}, util.NewIllegalArgumentError("Invalid token.")
			}
			upstreamReq.SelectedProfile = &dto.ProfileResponse{
				Id:   row.SrcUUID,
				Name: row.SrcName,
			}
		}
	}

	if claims.Selected[dst] {
		// the upstream token is already bound; sending a profile would be rejected
		upstreamReq.SelectedProfile = nil
	}

	return dst, upstreamReq, nil
}

func (p *preProxy) Join(ctx context.Context, claims *model.SessionClaims, req dto.JoinServerRequest) (string, dto.JoinServerRequest, error) {
	if req.SelectedProfile != claims.SelectedUUID {
		return "", dto.JoinServerRequest{}, util.NewForbiddenOperationError(util.MessageInvalidToken)
	}
	dst, ok := claims.Uuids[req.SelectedProfile]
	if !ok {
		return "", dto.JoinServerRequest{}, util.NewForbiddenOperationError(util.MessageInvalidToken)
	}

	upstreamReq := req
	upstreamReq.AccessToken = claims.Tokens[dst]

	if p.masterSlaveEnabled && dst == p.mainBackend {
		return dst, upstreamReq, nil
	}
	row, err := p.store.FindByUUID(ctx, req.SelectedProfile)
	if err != nil {
		return "", dto.JoinServerRequest{}, util.NewForbiddenOperationError(util.MessageInvalidToken)
	}
	upstreamReq.SelectedProfile = row.SrcUUID
	return dst, upstreamReq, nil
}

func (p *preProxy) HasJoined(ctx context.Context, username, serverID string) (string, string, error) {
	if p.masterSlaveEnabled {
		if row, err := p.store.FindBySrcName(ctx, p.mainBackend, username); err == nil {
			return p.mainBackend, row.SrcName, nil
		} else if !errors.Is(err, ErrProfileNotFound) {
			return "", "", err
		}
	}
	row, err := p.store.FindByName(ctx, username)
	if err != nil {
		return "", "", err
	}
	return row.BackendID, row.SrcName, nil
}

func (p *preProxy) Profile(ctx context.Context, uuid string) (string, string) {
	row, err := p.store.FindByUUID(ctx, uuid)
	if err != nil {
		return p.mainBackend, uuid
	}
	return row.BackendID, row.SrcUUID
}

// Profiles buckets requested names by destination backend. Names the store
// has never seen are routed to the main backend only in master/slave mode,
// giving it a chance to resolve them; otherwise they are dropped, matching
// the upstream behavior the reference implementation's author flagged as a
// logic bug in the non-master/slave variant.
func (p *preProxy) Profiles(ctx context.Context, names []string) (map[string][]string, error) {
	buckets := make(map[string][]string)
	for _, name := range names {
		row, err := p.store.FindByName(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrProfileNotFound) {
				return nil, err
			}
			if p.masterSlaveEnabled {
				buckets[p.mainBackend] = append(buckets[p.mainBackend], name)
			}
			continue
		}
		buckets[row.BackendID] = append(buckets[row.BackendID], row.SrcName)
	}
	return buckets, nil
}
