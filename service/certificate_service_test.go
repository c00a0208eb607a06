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
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func TestCertificateServiceIssuesFreshKeyEachCall(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate proxy key: %v", err)
	}
	certificates := NewCertificateService(NewSignatureService(key))

	first, err := certificates.IssueCertificate()
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	second, err := certificates.IssueCertificate()
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}

	if first.KeyPair.PrivateKey == second.KeyPair.PrivateKey {
		t.Error("expected every call to mint a fresh key pair, got two identical private keys")
	}
	if !first.ExpiresAt.After(first.RefreshedAfter) {
		t.Error("expected expiresAt to be after refreshedAfter")
	}
	if first.PublicKeySignature == "" {
		t.Error("expected a non-empty public key signature")
	}
}
