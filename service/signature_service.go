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
	"errors"
	"log"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"ygg-federation/dto"
)

// pubKeyCacheTTL bounds how long a fetched upstream public key is trusted
// before verify_upstream re-fetches it; §9 flags the fetch as a hot path,
// this is the correctness-preserving optimization it invites.
const pubKeyCacheTTL = 5 * time.Minute

type cachedPubKey struct {
	key       *rsa.PublicKey
	fetchedAt time.Time
}

// SignatureService signs content with the proxy's own key and verifies
// signatures an upstream claims over its own content.
type SignatureService interface {
	Sign(content string) (string, error)
	VerifyUpstream(ctx context.Context, backendID, baseURL, signatureB64, content string) bool
}

type signatureService struct {
	privateKey *rsa.PrivateKey
	client     *http.Client
	cache      *lru.Cache
}

func NewSignatureService(privateKey *rsa.PrivateKey) SignatureService {
	cache, _ := lru.New(128)
	return &signatureService{
		privateKey: privateKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
	}
}

func (s *signatureService) Sign(content string) (string, error) {
	sum := sha1.Sum([]byte(content))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.privateKey, crypto.SHA1, sum[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyUpstream never returns an error: any failure in fetch, parse,
// decode, or verification collapses to false.
func (s *signatureService) VerifyUpstream(ctx context.Context, backendID, baseURL, signatureB64, content string) bool {
	pubKey, err := s.upstreamPublicKey(ctx, backendID, baseURL)
	if err != nil || pubKey == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	sum := sha1.Sum([]byte(content))
	return rsa.VerifyPKCS1v15(pubKey, crypto.SHA1, sum[:], sig) == nil
}

func (s *signatureService) upstreamPublicKey(ctx context.Context, backendID, baseURL string) (*rsa.PublicKey, error) {
	if value, ok := s.cache.Get(backendID); ok {
		entry := value.(*cachedPubKey)
		if time.Since(entry.fetchedAt) < pubKeyCacheTTL {
			return entry.key, nil
		}
	}
	key, err := s.fetchUpstreamPublicKey(ctx, baseURL)
	if err != nil {
		log.Printf("signature service: failed to fetch public key for backend %q: %v", backendID, err)
		return nil, err
	}
	s.cache.Add(backendID, &cachedPubKey{key: key, fetchedAt: time.Now()})
	return key, nil
}

func (s *signatureService) fetchUpstreamPublicKey(ctx context.Context, baseURL string) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	meta := dto.ServerMeta{}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	block, _ := pem.Decode([]byte(meta.SignaturePublickey))
	if block == nil {
		return nil, errors.New("upstream metadata did not contain a PEM public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pubKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("upstream public key is not RSA")
	}
	return pubKey, nil
}
