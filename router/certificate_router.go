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

package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ygg-federation/service"
)

const bearerPrefixLen = len("Bearer ")

// CertificateRouter serves the profile-key-pair endpoint. When the profile
// key feature is disabled it answers 404; missing or unparsable bearer tokens answer an empty 204
// rather than 401, mirroring the reference authentication server.
type CertificateRouter interface {
	IssueCertificate(c *gin.Context)
}

type certificateRouterImpl struct {
	certificates service.CertificateService
	codec        service.TokenCodec
	enabled      bool
}

func NewCertificateRouter(certificates service.CertificateService, codec service.TokenCodec, enabled bool) CertificateRouter {
	return &certificateRouterImpl{certificates: certificates, codec: codec, enabled: enabled}
}

func (r *certificateRouterImpl) IssueCertificate(c *gin.Context) {
	if !r.enabled {
		c.Status(http.StatusNotFound)
		return
	}

	header := c.GetHeader("Authorization")
	if len(header) <= bearerPrefixLen {
		c.Status(http.StatusNoContent)
		return
	}
	token := strings.TrimSpace(header[bearerPrefixLen:])
	if _, err := r.codec.Verify(token); err != nil {
		c.Status(http.StatusNoContent)
		return
	}

	cert, err := r.certificates.IssueCertificate()
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, cert)
}
