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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"ygg-federation/dto"
	"ygg-federation/util"
)

const (
	pathAuthenticate = "/authserver/authenticate"
	pathRefresh      = "/authserver/refresh"
	pathValidate     = "/authserver/validate"
	pathInvalidate   = "/authserver/invalidate"
	pathSignout      = "/authserver/signout"
	pathJoin         = "/sessionserver/session/minecraft/join"
	pathHasJoined    = "/sessionserver/session/minecraft/hasJoined"
	pathProfile      = "/sessionserver/session/minecraft/profile/"
	pathProfiles     = "/api/profiles/minecraft"

	upstreamRequestTimeout = 10 * time.Second
	maxConcurrentRequests  = 64
)

// UpstreamClient is a thin HTTP+JSON adapter exposing the nine Yggdrasil
// operations against a single upstream, identified by its base URL.
// Authenticate and Refresh attempt the success shape first, falling back to
// the structured ErrorReply shape before giving up as a transport failure.
// Validate and Join treat 204 as success and otherwise look for an
// ErrorReply. HasJoined, Profile and Profiles decode only the success shape
// and report any other body as a transport failure. Invalidate and Logout
// do not read the reply body.
type UpstreamClient interface {
	Authenticate(ctx context.Context, baseURL string, req dto.AuthenticateRequest) (*dto.AuthenticateReply, *dto.ErrorReply, error)
	Refresh(ctx context.Context, baseURL string, req dto.RefreshRequest) (*dto.RefreshReply, *dto.ErrorReply, error)
	Validate(ctx context.Context, baseURL string, req dto.ValidateRequest) (bool, *dto.ErrorReply, error)
	Invalidate(ctx context.Context, baseURL string, req dto.InvalidateRequest) error
	Logout(ctx context.Context, baseURL string, req dto.SignoutRequest) error
	Join(ctx context.Context, baseURL string, req dto.JoinServerRequest) (bool, *dto.ErrorReply, error)
	HasJoined(ctx context.Context, baseURL, username, serverID string, ip *string) (*dto.CompleteProfileResponse, error)
	Profile(ctx context.Context, baseURL, uuid string, unsigned *bool) (*dto.CompleteProfileResponse, error)
	Profiles(ctx context.Context, baseURL string, names []string) ([]dto.CompleteProfileResponse, error)
}

type upstreamClient struct {
	httpClient *http.Client
	sem        *semaphore.Weighted
}

func NewUpstreamClient() UpstreamClient {
	return &upstreamClient{
		httpClient: &http.Client{Timeout: upstreamRequestTimeout},
		sem:        semaphore.NewWeighted(maxConcurrentRequests),
	}
}

// ErrUpstreamNotFound signals a 204 on an operation (hasJoined, profile)
// where 204 means "no such profile", as opposed to join/validate where 204
// means success.
var ErrUpstreamNotFound = fmt.Errorf("upstream: not found")

func (c *upstreamClient) do(ctx context.Context, method, fullURL string, body []byte) (*util.HTTPResponse, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)
	resp, err := util.DoHTTPRequestWithContext(ctx, c.httpClient, method, fullURL, body, upstreamRequestTimeout)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("upstream: no response")
	}
	return resp, nil
}

// decodeReply tries the success shape first (as spec §4.D requires), then
// the ErrorReply shape, and otherwise reports a transport failure.
func decodeReply(resp *util.HTTPResponse, success interface{}) (*dto.ErrorReply, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, success); err == nil {
			return nil, nil
		}
	}
	errReply := dto.ErrorReply{}
	if err := json.Unmarshal(resp.Body, &errReply); err == nil && errReply.Error != "" {
		return &errReply, nil
	}
	return nil, fmt.Errorf("upstream: transport failure, status %d", resp.StatusCode)
}

func (c *upstreamClient) Authenticate(ctx context.Context, baseURL string, req dto.AuthenticateRequest) (*dto.AuthenticateReply, *dto.ErrorReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, trimBase(baseURL)+pathAuthenticate, body)
	if err != nil {
		return nil, nil, err
	}
	reply := dto.AuthenticateReply{}
	errReply, err := decodeReply(resp, &reply)
	if err != nil {
		return nil, nil, err
	}
	if errReply != nil {
		return nil, errReply, nil
	}
	return &reply, nil, nil
}

func (c *upstreamClient) Refresh(ctx context.Context, baseURL string, req dto.RefreshRequest) (*dto.RefreshReply, *dto.ErrorReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, trimBase(baseURL)+pathRefresh, body)
	if err != nil {
		return nil, nil, err
	}
	reply := dto.RefreshReply{}
	errReply, err := decodeReply(resp, &reply)
	if err != nil {
		return nil, nil, err
	}
	if errReply != nil {
		return nil, errReply, nil
	}
	return &reply, nil, nil
}

func (c *upstreamClient) Validate(ctx context.Context, baseURL string, req dto.ValidateRequest) (bool, *dto.ErrorReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, trimBase(baseURL)+pathValidate, body)
	if err != nil {
		return false, nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return true, nil, nil
	}
	errReply := dto.ErrorReply{}
	if err := json.Unmarshal(resp.Body, &errReply); err == nil && errReply.Error != "" {
		return false, &errReply, nil
	}
	return false, nil, fmt.Errorf("upstream: transport failure, status %d", resp.StatusCode)
}

func (c *upstreamClient) Invalidate(ctx context.Context, baseURL string, req dto.InvalidateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, trimBase(baseURL)+pathInvalidate, body)
	return err
}

func (c *upstreamClient) Logout(ctx context.Context, baseURL string, req dto.SignoutRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, trimBase(baseURL)+pathSignout, body)
	return err
}

func (c *upstreamClient) Join(ctx context.Context, baseURL string, req dto.JoinServerRequest) (bool, *dto.ErrorReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, trimBase(baseURL)+pathJoin, body)
	if err != nil {
		return false, nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return true, nil, nil
	}
	errReply := dto.ErrorReply{}
	if err := json.Unmarshal(resp.Body, &errReply); err == nil && errReply.Error != "" {
		return false, &errReply, nil
	}
	return false, nil, fmt.Errorf("upstream: transport failure, status %d", resp.StatusCode)
}

func (c *upstreamClient) HasJoined(ctx context.Context, baseURL, username, serverID string, ip *string) (*dto.CompleteProfileResponse, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("serverId", serverID)
	if ip != nil {
		q.Set("ip", *ip)
	}
	resp, err := c.do(ctx, http.MethodGet, trimBase(baseURL)+pathHasJoined+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrUpstreamNotFound
	}
	profile := dto.CompleteProfileResponse{}
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("upstream: transport failure, status %d", resp.StatusCode)
	}
	return &profile, nil
}

func (c *upstreamClient) Profile(ctx context.Context, baseURL, uuid string, unsigned *bool) (*dto.CompleteProfileResponse, error) {
	fullURL := trimBase(baseURL) + pathProfile + uuid
	if unsigned != nil {
		fullURL += "?unsigned=" + strconv.FormatBool(*unsigned)
	}
	resp, err := c.do(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrUpstreamNotFound
	}
	profile := dto.CompleteProfileResponse{}
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("upstream: transport failure, status %d", resp.StatusCode)
	}
	return &profile, nil
}

func (c *upstreamClient) Profiles(ctx context.Context, baseURL string, names []string) ([]dto.CompleteProfileResponse, error) {
	body, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, trimBase(baseURL)+pathProfiles, body)
	if err != nil {
		return nil, err
	}
	var profiles []dto.CompleteProfileResponse
	if err := json.Unmarshal(resp.Body, &profiles); err != nil {
		return nil, fmt.Errorf("upstream: transport failure, status %d", resp.StatusCode)
	}
	return profiles, nil
}

// trimBase strips a trailing slash so path concatenation never produces a
// double slash regardless of how the operator wrote the backends map.
func trimBase(base string) string {
	return strings.TrimRight(base, "/")
}
