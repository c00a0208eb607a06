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
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"ygg-federation/dto"
)

func newTestTranslator(t *testing.T, mainBackend string, masterSlave bool) Translator {
	t.Helper()
	store := newTestProfileStore(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signatures := NewSignatureService(key)
	backends := map[string]string{mainBackend: "http://main.invalid", "slave": "http://slave.invalid"}
	return NewTranslator(store, signatures, backends, mainBackend, masterSlave)
}

func TestTranslatorAssignsStableMapping(t *testing.T) {
	translator := newTestTranslator(t, "main", false)
	ctx := context.Background()

	profile := &dto.CompleteProfileResponse{ID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Name: "Steve"}

	first, err := translator.Translate(ctx, "main", profile)
	if err != nil {
		t.Fatalf("first translate failed: %v", err)
	}
	second, err := translator.Translate(ctx, "main", profile)
	if err != nil {
		t.Fatalf("second translate failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected idempotent uuid assignment, got %s then %s", first.ID, second.ID)
	}
	if first.Name != second.Name {
		t.Errorf("expected idempotent name assignment, got %s then %s", first.Name, second.Name)
	}
}

func TestTranslatorMasterSlavePassthrough(t *testing.T) {
	translator := newTestTranslator(t, "main", true)
	ctx := context.Background()

	profile := &dto.CompleteProfileResponse{ID: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Name: "Alex"}

	out, err := translator.Translate(ctx, "main", profile)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if out.ID != profile.ID || out.Name != profile.Name {
		t.Errorf("expected main backend's own identity unchanged in master/slave mode, got %+v", out)
	}
}

func TestTranslatorRenamesNonMainBackend(t *testing.T) {
	translator := newTestTranslator(t, "main", true)
	ctx := context.Background()

	profile := &dto.CompleteProfileResponse{ID: "cccccccccccccccccccccccccccccccc", Name: "Alex"}

	out, err := translator.Translate(ctx, "slave", profile)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if out.ID == profile.ID {
		t.Error("expected a non-main backend's identity to be remapped even in master/slave mode")
	}
	if out.Name != "slave_Alex" {
		t.Errorf("expected proxy name slave_Alex, got %s", out.Name)
	}
}
