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

	"ygg-federation/dto"
	"ygg-federation/model"
	"ygg-federation/util"
)

// PostProxy merges the parallel (or single) upstream replies for an
// operation back into a client-facing reply, updating session claims and
// minting a new token where the operation calls for it.
type PostProxy interface {
	// Authenticate merges the per-backend replies of a fanned-out
	// authenticate call. An empty map is a ForbiddenOperation.
	Authenticate(ctx context.Context, replies map[string]*dto.AuthenticateReply) (*dto.AuthenticateReply, string, error)
	// Refresh updates claims in place for the single destination backend
	// that replied, and returns the client-facing reply plus the new token.
	Refresh(ctx context.Context, claims *model.SessionClaims, dst string, reply *dto.RefreshReply) (*dto.RefreshReply, string, error)
}

type postProxy struct {
	translator  Translator
	codec       TokenCodec
	mainBackend string
}

func NewPostProxy(translator Translator, codec TokenCodec, mainBackend string) PostProxy {
	return &postProxy{translator: translator, codec: codec, mainBackend: mainBackend}
}

func (p *postProxy) Authenticate(ctx context.Context, replies map[string]*dto.AuthenticateReply) (*dto.AuthenticateReply, string, error) {
	if len(replies) == 0 {
		return nil, "", util.NewForbiddenOperationError(util.MessageInvalidCredentials)
	}

	claims := &model.SessionClaims{
		Tokens:   map[string]string{},
		Uuids:    map[string]string{},
		Selected: map[string]bool{},
	}
	out := &dto.AuthenticateReply{}

	for backend, reply := range replies {
		claims.Tokens[backend] = reply.AccessToken
		claims.Selected[backend] = reply.SelectedProfile != nil
		// Prefer the main backend's clientToken when it answered; fall back
		// to whichever backend is processed first otherwise, since map
		// iteration order is unspecified.
		if out.ClientToken == "" || backend == p.mainBackend {
			out.ClientToken = reply.ClientToken
		}
		if out.User == nil && reply.User != nil {
			out.User = reply.User
		}

		for _, profile := range reply.AvailableProfiles {
			translated, err := p.translator.Translate(ctx, backend, &dto.CompleteProfileResponse{
				ID:   profile.Id,
				Name: profile.Name,
			})
			if err != nil {
				return nil, "", err
			}
			claims.Uuids[translated.ID] = backend
			out.AvailableProfiles = append(out.AvailableProfiles, dto.ProfileResponse{
				Id:   translated.ID,
				Name: translated.Name,
			})
		}
		if reply.SelectedProfile != nil {
			translated, err := p.translator.Translate(ctx, backend, &dto.CompleteProfileResponse{
				ID:   reply.SelectedProfile.Id,
				Name: reply.SelectedProfile.Name,
			})
			if err != nil {
				return nil, "", err
			}
			claims.Uuids[translated.ID] = backend
		}
	}

	// Never expose a selectedProfile to the client at authenticate time:
	// the aggregated profile set spans multiple upstreams.
	out.SelectedProfile = nil

	token := p.codec.Mint(claims)
	out.AccessToken = token
	return out, token, nil
}

func (p *postProxy) Refresh(ctx context.Context, claims *model.SessionClaims, dst string, reply *dto.RefreshReply) (*dto.RefreshReply, string, error) {
	out := &dto.RefreshReply{
		User:        reply.User,
		ClientToken: reply.ClientToken,
	}

	claims.Tokens[dst] = reply.AccessToken

	if reply.SelectedProfile != nil {
		translated, err := p.translator.Translate(ctx, dst, &dto.CompleteProfileResponse{
			ID:   reply.SelectedProfile.Id,
			Name: reply.SelectedProfile.Name,
		})
		if err != nil {
			return nil, "", err
		}
		claims.SelectedUUID = translated.ID
		claims.Selected[dst] = true
		claims.Uuids[translated.ID] = dst
		out.SelectedProfile = &dto.ProfileResponse{Id: translated.ID, Name: translated.Name}
	} else {
		claims.SelectedUUID = ""
		claims.Selected[dst] = false
	}

	token := p.codec.Mint(claims)
	out.AccessToken = token
	return out, token, nil
}
