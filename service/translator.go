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
	"fmt"

	"ygg-federation/dto"
	"ygg-federation/model"
	"ygg-federation/util"
)

// Translator converts an upstream profile into the proxy's view: it remaps
// the uuid, renames the profile, and re-signs properties, persisting or
// reusing a mapping row as it goes.
type Translator interface {
	Translate(ctx context.Context, srcBackend string, profile *dto.CompleteProfileResponse) (*dto.CompleteProfileResponse, error)
}

type translator struct {
	store              ProfileStore
	signatures         SignatureService
	backends           map[string]string
	mainBackend        string
	masterSlaveEnabled bool
}

func NewTranslator(store ProfileStore, signatures SignatureService, backends map[string]string, mainBackend string, masterSlaveEnabled bool) Translator {
	return &translator{
		store:              store,
		signatures:         signatures,
		backends:           backends,
		mainBackend:        mainBackend,
		masterSlaveEnabled: masterSlaveEnabled,
	}
}

func (t *translator) Translate(ctx context.Context, srcBackend string, profile *dto.CompleteProfileResponse) (*dto.CompleteProfileResponse, error) {
	proxyName := fmt.Sprintf("%s_%s", srcBackend, profile.Name)

	row, err := t.store.FindByBackendAndSrcUUID(ctx, srcBackend, profile.ID)
	switch {
	case err == nil:
		row.Name = proxyName
		row.SrcName = profile.Name
		if err := t.store.Upsert(ctx, row); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrProfileNotFound):
		row = &model.ProfileMapping{
			BackendID: srcBackend,
			SrcUUID:   profile.ID,
			SrcName:   profile.Name,
			UUID:      util.NewUnsignedUUID(),
			Name:      proxyName,
		}
		if err := t.store.Upsert(ctx, row); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	outUUID, outName := row.UUID, row.Name
	if t.masterSlaveEnabled && srcBackend == t.mainBackend {
		outUUID, outName = profile.ID, profile.Name
	}

	out := &dto.CompleteProfileResponse{
		ID:         outUUID,
		Name:       outName,
		Properties: t.resignProperties(ctx, srcBackend, profile.Properties),
	}
	return out, nil
}

func (t *translator) resignProperties(ctx context.Context, srcBackend string, properties []dto.StringProperty) []dto.StringProperty {
	if len(properties) == 0 {
		return properties
	}
	baseURL := t.backends[srcBackend]
	out := make([]dto.StringProperty, len(properties))
	for i, p := range properties {
		out[i] = p
		if p.Signature == "" {
			continue
		}
		if !t.signatures.VerifyUpstream(ctx, srcBackend, baseURL, p.Signature, p.Value) {
			// Leave unchanged: the game client's own validation will fail
			// in a diagnosable way.
			continue
		}
		if resigned, err := t.signatures.Sign(p.Value); err == nil {
			out[i].Signature = resigned
		}
	}
	return out
}
