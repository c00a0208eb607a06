/*
 * Copyright (C) 2022. Gardel <sunxinao@hotmail.com> and contributors
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

	"ygg-federation/dto"
	"ygg-federation/service"
	"ygg-federation/util"
)

type SessionRouter interface {
	JoinServer(c *gin.Context)
	HasJoinedServer(c *gin.Context)
}

type sessionRouterImpl struct {
	federation service.FederationService
}

func NewSessionRouter(federation service.FederationService) SessionRouter {
	return &sessionRouterImpl{federation: federation}
}

func (s *sessionRouterImpl) JoinServer(c *gin.Context) {
	req := dto.JoinServerRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	if err := s.federation.Join(c.Request.Context(), req.AccessToken, req); err != nil {
		util.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *sessionRouterImpl) HasJoinedServer(c *gin.Context) {
	username := c.Query("username")
	serverId := c.Query("serverId")
	var ip *string
	if v, ok := c.GetQuery("ip"); ok {
		ip = &v
	} else if idx := strings.LastIndexByte(c.Request.RemoteAddr, ':'); idx >= 0 {
		v := c.Request.RemoteAddr[:idx]
		ip = &v
	}

	profile, err := s.federation.HasJoined(c.Request.Context(), username, serverId, ip)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
