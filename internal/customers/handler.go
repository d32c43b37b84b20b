package customers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/middleware"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes mounts signup and login. The caller applies rate limiting.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/customer/register", h.register)
	rg.POST("/customer/login", h.login)
}

// RegisterCustomerRoutes mounts routes guarded by middleware.CustomerAuth.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.GET("/customer/profile", h.profile)
	rg.PATCH("/customer/update", h.update)
	rg.DELETE("/customer/delete", h.delete)
}

// RegisterRoutes mounts the staff view of customers.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers", h.list)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	customer, session, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		CompanyID:  req.CompanyID,
		Name:       req.Name,
		Contact:    req.Contact,
		Password:   req.Password,
		Source:     req.Source,
		ProfileURI: req.ProfileURI,
	})
	if err != nil {
		writeError(c, err, "failed to register customer")
		return
	}
	respond.Success(c, http.StatusCreated, "Customer registered successfully", toSessionResponse(customer, session, time.Now()))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	customer, session, err := h.Svc.Login(c.Request.Context(), LoginInput{
		CompanyID: req.CompanyID,
		Contact:   req.Contact,
		Password:  req.Password,
		Source:    req.Source,
	})
	if err != nil {
		writeError(c, err, "failed to log in")
		return
	}
	respond.Success(c, http.StatusOK, "Login successful", toSessionResponse(customer, session, time.Now()))
}

func (h *Handler) profile(c *gin.Context) {
	customer, err := h.Svc.Profile(c.Request.Context(), middleware.CompanyIDFromContext(c), middleware.CustomerIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to fetch profile")
		return
	}
	respond.Success(c, http.StatusOK, "Profile fetched successfully", ToResponse(customer))
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BindError(c, err)
		return
	}
	customer, err := h.Svc.Update(c.Request.Context(), middleware.CompanyIDFromContext(c), middleware.CustomerIDFromContext(c), Patch{
		Name:       req.Name,
		ProfileURI: req.ProfileURI,
		Password:   req.Password,
	})
	if err != nil {
		writeError(c, err, "failed to update profile")
		return
	}
	respond.Success(c, http.StatusOK, "Profile updated successfully", ToResponse(customer))
}

func (h *Handler) delete(c *gin.Context) {
	id := middleware.CustomerIDFromContext(c)
	if err := h.Svc.Delete(c.Request.Context(), middleware.CompanyIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete customer")
		return
	}
	respond.Success(c, http.StatusOK, "Customer deleted successfully", gin.H{"id": id, "deleted": true})
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.CompanyIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list customers")
		return
	}
	out := make([]Response, 0, len(list))
	for _, customer := range list {
		out = append(out, ToResponse(customer))
	}
	respond.Success(c, http.StatusOK, "Customers fetched successfully", out)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid credentials", nil)
	case errors.Is(err, ErrCompanyNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "company not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "customer not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
