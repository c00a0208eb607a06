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
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ygg-federation/dto"
	"ygg-federation/service"
)

// Services bundles the constructed service layer InitRouters wires into
// handlers. Built once at startup and handed down from main.
type Services struct {
	Federation   service.FederationService
	Certificates service.CertificateService
	Codec        service.TokenCodec
	ProfileKeyEnabled bool
	AuthLimiter  service.AuthenticateLimiter
}

func InitRouters(router *gin.Engine, meta *dto.ServerMeta, svc Services) {
	err := router.SetTrustedProxies([]string{"127.0.0.1"})
	if err != nil {
		panic(err)
	}
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "User-Agent"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	homeRouter := NewHomeRouter(meta)
	proxyRouter := NewProxyRouter(svc.Federation, svc.AuthLimiter)
	sessionRouter := NewSessionRouter(svc.Federation)
	certificateRouter := NewCertificateRouter(svc.Certificates, svc.Codec, svc.ProfileKeyEnabled)

	router.GET("/", homeRouter.Home)

	authserver := router.Group("/authserver")
	{
		authserver.POST("/authenticate", proxyRouter.Authenticate)
		authserver.POST("/refresh", proxyRouter.Refresh)
		authserver.POST("/validate", proxyRouter.Validate)
		authserver.POST("/invalidate", proxyRouter.Invalidate)
		authserver.POST("/signout", proxyRouter.Signout)
	}

	sessionserver := router.Group("/sessionserver/session/minecraft")
	{
		sessionserver.GET("/profile/:uuid", proxyRouter.QueryProfile)
		sessionserver.POST("/join", sessionRouter.JoinServer)
		sessionserver.GET("/hasJoined", sessionRouter.HasJoinedServer)
	}

	api := router.Group("/api")
	{
		api.POST("/profiles/minecraft", proxyRouter.QueryUUIDs)
	}

	router.POST("/certificates", certificateRouter.IssueCertificate)
}
