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
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"ygg-federation/dto"
)

func startFakeUpstream(t *testing.T, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()
	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}))

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := dto.ServerMeta{SignaturePublickey: pubPEM}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(meta)
	}))
}

func TestSignatureServiceVerifyUpstream(t *testing.T) {
	upstreamKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate upstream key: %v", err)
	}
	srv := startFakeUpstream(t, &upstreamKey.PublicKey)
	defer srv.Close()

	proxyKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate proxy key: %v", err)
	}
	signatures := NewSignatureService(proxyKey)

	content := "texture-property-value"
	sum := sha1.Sum([]byte(content))
	sig, err := rsa.SignPKCS1v15(rand.Reader, upstreamKey, crypto.SHA1, sum[:])
	if err != nil {
		t.Fatalf("failed to sign content: %v", err)
	}
	sigB64 := base64.StdEncoding.EncodeToString(sig)

	ok := signatures.VerifyUpstream(context.Background(), "main", srv.URL, sigB64, content)
	if !ok {
		t.Fatal("expected signature to verify against the upstream's advertised key")
	}
}

func TestSignatureServiceVerifyUpstreamRejectsBadSignature(t *testing.T) {
	upstreamKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate upstream key: %v", err)
	}
	srv := startFakeUpstream(t, &upstreamKey.PublicKey)
	defer srv.Close()

	proxyKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate proxy key: %v", err)
	}
	signatures := NewSignatureService(proxyKey)

	ok := signatures.VerifyUpstream(context.Background(), "main", srv.URL, "not-a-real-signature", "content")
	if ok {
		t.Fatal("expected an invalid signature to fail verification")
	}
}

func TestSignatureServiceSignProducesVerifiableSignature(t *testing.T) {
	proxyKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate proxy key: %v", err)
	}
	signatures := NewSignatureService(proxyKey)

	sigB64, err := signatures.Sign("hello world")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		t.Fatalf("failed to decode signature: %v", err)
	}
	sum := sha1.Sum([]byte("hello world"))
	if err := rsa.VerifyPKCS1v15(&proxyKey.PublicKey, crypto.SHA1, sum[:], sig); err != nil {
		t.Fatalf("expected signature to verify against the proxy's own key: %v", err)
	}
}
