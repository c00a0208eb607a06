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
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	"ygg-federation/dto"
)

const (
	certificateExpiry        = 48 * time.Hour
	certificateRefreshedAfter = 36 * time.Hour
)

// CertificateService mints the ephemeral keypair behind the /certificates
// endpoint. Unlike the profile key pattern it supersedes, there is no cache:
// every call generates a fresh 2048-bit key, per spec.
type CertificateService interface {
	IssueCertificate() (*dto.ProfileKeyResponse, error)
}

type certificateService struct {
	signatures SignatureService
}

func NewCertificateService(signatures SignatureService) CertificateService {
	return &certificateService{signatures: signatures}
}

func (c *certificateService) IssueCertificate() (*dto.ProfileKeyResponse, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	privateKeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	privatePEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privateKeyBytes}))

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyBytes}))

	now := time.Now().UTC()
	expiresAt := now.Add(certificateExpiry)
	refreshedAfter := now.Add(certificateRefreshedAfter)

	signStr := fmt.Sprintf("%d%s", expiresAt.UnixMilli(), publicPEM)
	signature, err := c.signatures.Sign(signStr)
	if err != nil {
		return nil, err
	}

	return &dto.ProfileKeyResponse{
		ExpiresAt: expiresAt,
		KeyPair: dto.KeyPair{
			PrivateKey: privatePEM,
			PublicKey:  publicPEM,
		},
		PublicKeySignature:   signature,
		PublicKeySignatureV2: signature,
		RefreshedAfter:       refreshedAfter,
	}, nil
}
