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
)

func TestPostProxyAuthenticateRejectsEmptyReplies(t *testing.T) {
	translator := newTestTranslator(t, "main", false)
	codec := NewTokenCodec([]byte("secret"))
	post := NewPostProxy(translator, codec, "main")

	_, _, err := post.Authenticate(context.Background(), map[string]*dto.AuthenticateReply{})
	if err == nil {
		t.Fatal("expected an error for an empty reply set")
	}
}

func TestPostProxyAuthenticatePrefersMainClientToken(t *testing.T) {
	translator := newTestTranslator(t, "main", false)
	codec := NewTokenCodec([]byte("secret"))
	post := NewPostProxy(translator, codec, "main")

	replies := map[string]*dto.AuthenticateReply{
		"slave": {ClientToken: "slave-token", AccessToken: "slave-access"},
		"main":  {ClientToken: "main-token", AccessToken: "main-access"},
	}

	out, _, err := post.Authenticate(context.Background(), replies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ClientToken != "main-token" {
		t.Errorf("expected main backend's clientToken to win, got %s", out.ClientToken)
	}
	if out.SelectedProfile != nil {
		t.Error("expected no selectedProfile to be exposed at authenticate time")
	}
}

func TestPostProxyAuthenticateMergesProfiles(t *testing.T) {
	translator := newTestTranslator(t, "main", false)
	codec := NewTokenCodec([]byte("secret"))
	post := NewPostProxy(translator, codec, "main")

	replies := map[string]*dto.AuthenticateReply{
		"main": {
			ClientToken: "ct",
			AccessToken: "at",
			AvailableProfiles: []dto.ProfileResponse{
				{Id: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Name: "Steve"},
			},
		},
	}

	out, token, err := post.Authenticate(context.Background(), replies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.AvailableProfiles) != 1 {
		t.Fatalf("expected one merged profile, got %d", len(out.AvailableProfiles))
	}
	if out.AvailableProfiles[0].Name != "main_Steve" {
		t.Errorf("expected translated proxy name, got %s", out.AvailableProfiles[0].Name)
	}
	if token == "" {
		t.Error("expected a minted token")
	}
}
