// Package handler exposes the accounts service over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/internal/accounts/service"
	"accounts_backend/internal/accounts/transport"
	apphttp "accounts_backend/internal/http"
	"accounts_backend/platform/httpkit"
	"accounts_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the accounts API. Account mutations go through the
// stricter mutation rate limiter; verification endpoints stay public because
// they are exercised before the caller can authenticate.
func (h *Handler) RegisterRoutes(ctx *apphttp.RouterContext) {
	limited := ctx.MutationRateLimiter.RateLimit()

	public := ctx.V1.Group("/accounts")
	public.POST("/sign-up", limited, h.SignUp)
	public.GET("/user-orgs", h.GetUserOrgs)
	public.POST("/users/:id/activate", limited, h.Activate)
	public.POST("/users/:id/password", limited, h.ChangePassword)
	public.POST("/users/:id/send-verify-token", limited, h.SendVerifyToken)

	protected := ctx.Protected.Group("/accounts")
	protected.POST("/users", limited, h.CreateUser)
	protected.GET("/:id", h.GetAccount)
	protected.PUT("/users/:id", h.UpdateUser)
	protected.DELETE("/users/:id", limited, h.DeleteUser)
	protected.PUT("/organizations/:id", h.UpdateOrganization)

	admin := ctx.Admin.Group("/accounts")
	admin.PUT("/users/:id/roles", h.UpdateRoles)
}

func caller(c *gin.Context) domain.Caller {
	id := httpkit.GetIdentity(c)
	return domain.Caller{
		UserID:         id.UserID(),
		OrganizationID: id.OrganizationID(),
		SolutionID:     id.SolutionID(),
		Roles:          id.Roles(),
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req transport.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	h.createUser(c, req.User, req.Organization, req.Channel, req.Password, false)
}

func (h *Handler) SignUp(c *gin.Context) {
	var req transport.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	h.createUser(c, req.User, req.Organization, req.Channel, req.Password, true)
}

func (h *Handler) createUser(c *gin.Context, user transport.AccountPayload, org *transport.AccountPayload, channel, password string, signUp bool) {
	userAccount, err := user.ToDomain(domain.EntityUser)
	if httpkit.HandleError(c, err) {
		return
	}

	var orgAccount *domain.Account
	if org != nil {
		orgAccount, err = org.ToDomain(domain.EntityOrganization)
		if httpkit.HandleError(c, err) {
			return
		}
	}

	result, err := h.svc.CreateUser(c.Request.Context(), caller(c), service.CreateUserInput{
		User:         userAccount,
		Organization: orgAccount,
		Channel:      domain.Channel(channel),
		Password:     password,
		SignUp:       signUp,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	if result.Merged {
		httpkit.OK(c, result)
		return
	}
	httpkit.Created(c, result)
}

func (h *Handler) GetAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	account, err := h.svc.GetAccount(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, account)
}

func (h *Handler) GetUserOrgs(c *gin.Context) {
	channel := domain.Channel(c.Query("channel"))
	value := c.Query("value")
	if !channel.Valid() || value == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	orgs, err := h.svc.GetUserOrgs(c.Request.Context(), channel, value)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"orgs": orgs})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	incoming, err := req.ToDomain(domain.EntityUser)
	if httpkit.HandleError(c, err) {
		return
	}
	incoming.ID = id

	updated, err := h.svc.UpdateUser(c.Request.Context(), caller(c), incoming)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, updated)
}

func (h *Handler) UpdateOrganization(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	incoming, err := req.ToDomain(domain.EntityOrganization)
	if httpkit.HandleError(c, err) {
		return
	}
	incoming.ID = id

	updated, err := h.svc.UpdateOrganization(c.Request.Context(), caller(c), incoming)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, updated)
}

func (h *Handler) UpdateRoles(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.UpdateRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	updated, err := h.svc.UpdateUserRoles(c.Request.Context(), id, req.Roles)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.UpdateRolesResponse{Updated: updated})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	statusCode := 0
	if raw := c.Query("statusCode"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid statusCode", nil)
			return
		}
		statusCode = parsed
	}

	deleted, err := h.svc.DeleteUser(c.Request.Context(), caller(c), id, statusCode)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, deleted)
}

func (h *Handler) Activate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	activated, err := h.svc.ActivateUser(c.Request.Context(), id, domain.Channel(req.Channel), req.Code, req.Action)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ActivateResponse{Activated: activated})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	changed, err := h.svc.ChangeUserPassword(c.Request.Context(), id, req.Password, domain.Channel(req.Channel), req.Code)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ChangePasswordResponse{Changed: changed})
}

func (h *Handler) SendVerifyToken(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req transport.SendVerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	token, err := h.svc.SendVerifyToken(c.Request.Context(), req.SolutionID, id, domain.Channel(req.Channel), req.Action)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SendVerifyTokenResponse{Token: token})
}
