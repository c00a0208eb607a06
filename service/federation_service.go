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
	"log"
	"sync"

	"ygg-federation/dto"
	"ygg-federation/util"
)

// FederationService glues the profile store, token codec, signature
// service, translator, pre/post-proxy, and upstream client to the nine
// client-facing operations. Fan-out (authenticate, validate, invalidate,
// logout, profiles) collects every backend's reply independently, so one
// backend's failure never aborts the others; the sequential operations
// (refresh, join, hasJoined, profile) act on exactly one destination
// backend chosen by pre-proxy.
type FederationService interface {
	Authenticate(ctx context.Context, req dto.AuthenticateRequest) (*dto.AuthenticateReply, error)
	Refresh(ctx context.Context, token string, req dto.RefreshRequest) (*dto.RefreshReply, error)
	Validate(ctx context.Context, token string) error
	Invalidate(ctx context.Context, token string)
	Logout(ctx context.Context, req dto.SignoutRequest)
	Join(ctx context.Context, token string, req dto.JoinServerRequest) error
	HasJoined(ctx context.Context, username, serverID string, ip *string) (*dto.CompleteProfileResponse, error)
	Profile(ctx context.Context, uuid string, unsigned *bool) (*dto.CompleteProfileResponse, error)
	Profiles(ctx context.Context, names []string) ([]dto.CompleteProfileResponse, error)
}

type federationService struct {
	backends   map[string]string
	client     UpstreamClient
	codec      TokenCodec
	revocation RevocationStore
	preProxy   PreProxy
	postProxy  PostProxy
	translator Translator
}

func NewFederationService(
	backends map[string]string,
	client UpstreamClient,
	codec TokenCodec,
	revocation RevocationStore,
	preProxy PreProxy,
	postProxy PostProxy,
	translator Translator,
) FederationService {
	return &federationService{
		backends:   backends,
		client:     client,
		codec:      codec,
		revocation: revocation,
		preProxy:   preProxy,
		postProxy:  postProxy,
		translator: translator,
	}
}

func (f *federationService) Authenticate(ctx context.Context, req dto.AuthenticateRequest) (*dto.AuthenticateReply, error) {
	type result struct {
		backend string
		reply   *dto.AuthenticateReply
	}

	results := make(chan result, len(f.backends))
	var wg sync.WaitGroup
	for backend, baseURL := range f.backends {
		wg.Add(1)
		go func(backend, baseURL string) {
			defer wg.Done()
			reply, errReply, err := f.client.Authenticate(ctx, baseURL, req)
			if err != nil {
				log.Printf("federation: authenticate against backend %q failed: %v", backend, err)
				return
			}
			if errReply != nil {
				log.Printf("federation: backend %q rejected authenticate: %s", backend, errReply.ErrorMessage)
				return
			}
			results <- result{backend: backend, reply: reply}
		}(backend, baseURL)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	replies := make(map[string]*dto.AuthenticateReply)
	for r := range results {
		replies[r.backend] = r.reply
	}

	merged, _, err := f.postProxyAuthenticate(ctx, replies)
	return merged, err
}

func (f *federationService) postProxyAuthenticate(ctx context.Context, replies map[string]*dto.AuthenticateReply) (*dto.AuthenticateReply, string, error) {
	return f.postProxy.Authenticate(ctx, replies)
}

func (f *federationService) Refresh(ctx context.Context, token string, req dto.RefreshRequest) (*dto.RefreshReply, error) {
	claims, err := f.codec.Verify(token)
	if err != nil {
		return nil, util.NewForbiddenOperationError(util.MessageInvalidToken)
	}
	if f.revocation.IsRevoked(ctx, token) {
		return nil, util.NewForbiddenOperationError(util.MessageInvalidToken)
	}

	dst, upstreamReq, err := f.preProxy.Refresh(ctx, claims, req)
	if err != nil {
		return nil, err
	}
	baseURL, ok := f.backends[dst]
	if !ok {
		return nil, util.NewIllegalArgumentError("Invalid token.")
	}

	reply, errReply, err := f.client.Refresh(ctx, baseURL, upstreamReq)
	if err != nil {
		return nil, util.NewHttpError(err.Error())
	}
	if errReply != nil {
		return &dto.RefreshReply{}, passthroughError(errReply)
	}

	out, _, err := f.postProxy.Refresh(ctx, claims, dst, reply)
	return out, err
}

func (f *federationService) Validate(ctx context.Context, token string) error {
	claims, err := f.codec.Verify(token)
	if err != nil {
		return util.NewForbiddenOperationError(util.MessageInvalidToken)
	}
	if f.revocation.IsRevoked(ctx, token) {
		return util.NewForbiddenOperationError(util.MessageInvalidToken)
	}

	var wg sync.WaitGroup
	successes := make(chan bool, len(claims.Tokens))
	for backend, upstreamToken := range claims.Tokens {
		baseURL, ok := f.backends[backend]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(baseURL, upstreamToken string) {
			defer wg.Done()
			ok, _, err := f.client.Validate(ctx, baseURL, dto.ValidateRequest{
				DualTokenBase: dto.DualTokenBase{AccessTokenBase: dto.AccessTokenBase{AccessToken: upstreamToken}},
			})
			if err == nil && ok {
				successes <- true
			}
		}(baseURL, upstreamToken)
	}
	go func() {
		wg.Wait()
		close(successes)
	}()

	for ok := range successes {
		if ok {
			return nil
		}
	}
	return util.NewForbiddenOperationError(util.MessageInvalidToken)
}

func (f *federationService) Invalidate(ctx context.Context, token string) {
	claims, err := f.codec.Verify(token)
	if err != nil {
		return
	}
	f.revocation.Revoke(context.Background(), token, sessionLifetime)
	for backend, upstreamToken := range claims.Tokens {
		baseURL, ok := f.backends[backend]
		if !ok {
			continue
		}
		go func(backend, baseURL, upstreamToken string) {
			bgCtx := context.Background()
			if err := f.client.Invalidate(bgCtx, baseURL, dto.InvalidateRequest{
				AccessTokenBase: dto.AccessTokenBase{AccessToken: upstreamToken},
			}); err != nil {
				log.Printf("federation: invalidate against backend %q failed: %v", backend, err)
			}
		}(backend, baseURL, upstreamToken)
	}
}

func (f *federationService) Logout(ctx context.Context, req dto.SignoutRequest) {
	for backend, baseURL := range f.backends {
		go func(backend, baseURL string) {
			bgCtx := context.Background()
			if err := f.client.Logout(bgCtx, baseURL, req); err != nil {
				log.Printf("federation: signout against backend %q failed: %v", backend, err)
			}
		}(backend, baseURL)
	}
}

func (f *federationService) Join(ctx context.Context, token string, req dto.JoinServerRequest) error {
	claims, err := f.codec.Verify(token)
	if err != nil {
		return util.NewForbiddenOperationError(util.MessageInvalidToken)
	}
	if f.revocation.IsRevoked(ctx, token) {
		return util.NewForbiddenOperationError(util.MessageInvalidToken)
	}

	dst, upstreamReq, err := f.preProxy.Join(ctx, claims, req)
	if err != nil {
		return err
	}
	baseURL, ok := f.backends[dst]
	if !ok {
		return util.NewForbiddenOperationError(util.MessageInvalidToken)
	}

	ok2, errReply, err := f.client.Join(ctx, baseURL, upstreamReq)
	if err != nil {
		return util.NewHttpError(err.Error())
	}
	if errReply != nil {
		return passthroughError(errReply)
	}
	if !ok2 {
		return util.NewForbiddenOperationError(util.MessageInvalidToken)
	}
	return nil
}

func (f *federationService) HasJoined(ctx context.Context, username, serverID string, ip *string) (*dto.CompleteProfileResponse, error) {
	dst, srcUsername, err := f.preProxy.HasJoined(ctx, username, serverID)
	if err != nil {
		return nil, util.YggdrasilError{Status: 204}
	}
	baseURL, ok := f.backends[dst]
	if !ok {
		return nil, util.YggdrasilError{Status: 204}
	}
	profile, err := f.client.HasJoined(ctx, baseURL, srcUsername, serverID, ip)
	if err != nil {
		return nil, util.YggdrasilError{Status: 204}
	}
	return f.translator.Translate(ctx, dst, profile)
}

func (f *federationService) Profile(ctx context.Context, uuid string, unsigned *bool) (*dto.CompleteProfileResponse, error) {
	dst, srcUUID := f.preProxy.Profile(ctx, uuid)
	baseURL, ok := f.backends[dst]
	if !ok {
		return nil, util.YggdrasilError{Status: 204}
	}
	profile, err := f.client.Profile(ctx, baseURL, srcUUID, unsigned)
	if err != nil {
		return nil, util.YggdrasilError{Status: 204}
	}
	return f.translator.Translate(ctx, dst, profile)
}

func (f *federationService) Profiles(ctx context.Context, names []string) ([]dto.CompleteProfileResponse, error) {
	buckets, err := f.preProxy.Profiles(ctx, names)
	if err != nil {
		return nil, err
	}

	type result struct {
		backend  string
		profiles []dto.CompleteProfileResponse
	}
	results := make(chan result, len(buckets))
	var wg sync.WaitGroup
	for backend, srcNames := range buckets {
		baseURL, ok := f.backends[backend]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(backend, baseURL string, srcNames []string) {
			defer wg.Done()
			profiles, err := f.client.Profiles(ctx, baseURL, srcNames)
			if err != nil {
				log.Printf("federation: bulk profile lookup against backend %q failed: %v", backend, err)
				return
			}
			results <- result{backend: backend, profiles: profiles}
		}(backend, baseURL, srcNames)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var out []dto.CompleteProfileResponse
	for r := range results {
		for _, p := range r.profiles {
			translated, err := f.translator.Translate(ctx, r.backend, &p)
			if err != nil {
				continue
			}
			out = append(out, *translated)
		}
	}
	return out, nil
}

// passthroughError re-emits an upstream structured error verbatim with
// status 200, per §7: the game client inspects the body, not the status.
func passthroughError(reply *dto.ErrorReply) error {
	return util.YggdrasilError{
		ErrorCode:    reply.Error,
		ErrorMessage: reply.ErrorMessage,
		Cause:        reply.Cause,
		Status: 200,
	}
}
