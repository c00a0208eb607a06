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
	"strconv"

	"github.com/gin-gonic/gin"

	"ygg-federation/dto"
	"ygg-federation/service"
	"ygg-federation/util"
)

// ProxyRouter exposes the authserver endpoints (authenticate/refresh/
// validate/invalidate/signout), the bulk name lookup, and the single-
// profile lookup by uuid.
type ProxyRouter interface {
	Authenticate(c *gin.Context)
	Refresh(c *gin.Context)
	Validate(c *gin.Context)
	Invalidate(c *gin.Context)
	Signout(c *gin.Context)
	QueryProfile(c *gin.Context)
	QueryUUIDs(c *gin.Context)
}

type proxyRouterImpl struct {
	federation service.FederationService
	limiter    service.AuthenticateLimiter
}

func NewProxyRouter(federation service.FederationService, limiter service.AuthenticateLimiter) ProxyRouter {
	return &proxyRouterImpl{federation: federation, limiter: limiter}
}

func (r *proxyRouterImpl) Authenticate(c *gin.Context) {
	if !r.limiter.Allow(c.ClientIP()) {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError("Too many requests."))
		return
	}
	req := dto.AuthenticateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	reply, err := r.federation.Authenticate(c.Request.Context(), req)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (r *proxyRouterImpl) Refresh(c *gin.Context) {
	req := dto.RefreshRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	reply, err := r.federation.Refresh(c.Request.Context(), req.AccessToken, req)
	if err != nil {
		// Structured upstream errors are re-emitted verbatim with status
		// 200: the client inspects the body, not the status.
		if ye, ok := err.(util.YggdrasilError); ok && ye.Status == http.StatusOK {
			c.JSON(http.StatusOK, ye)
			return
		}
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (r *proxyRouterImpl) Validate(c *gin.Context) {
	req := dto.ValidateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	if err := r.federation.Validate(c.Request.Context(), req.AccessToken); err != nil {
		util.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *proxyRouterImpl) Invalidate(c *gin.Context) {
	req := dto.InvalidateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	// Fire-and-forget: detaches from the request lifetime intentionally.
	r.federation.Invalidate(c.Request.Context(), req.AccessToken)
	c.Status(http.StatusNoContent)
}

func (r *proxyRouterImpl) Signout(c *gin.Context) {
	req := dto.SignoutRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	r.federation.Logout(c.Request.Context(), req)
	c.Status(http.StatusNoContent)
}

func (r *proxyRouterImpl) QueryProfile(c *gin.Context) {
	uuid := c.Param("uuid")
	var unsigned *bool
	if v := c.Query("unsigned"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			unsigned = &b
		}
	}
	profile, err := r.federation.Profile(c.Request.Context(), uuid, unsigned)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (r *proxyRouterImpl) QueryUUIDs(c *gin.Context) {
	var names []string
	if err := c.ShouldBindJSON(&names); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, util.NewForbiddenOperationError(err.Error()))
		return
	}
	profiles, err := r.federation.Profiles(c.Request.Context(), names)
	if err != nil {
		util.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}
