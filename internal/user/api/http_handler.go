package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/user/domain"
	"github.com/ridloal/agri-traceability/internal/user/repository"
	"github.com/ridloal/agri-traceability/internal/user/service"
)

type UserHandler struct {
	userService service.UserService
	verifier    *identity.Verifier
}

func NewUserHandler(us service.UserService, verifier *identity.Verifier) *UserHandler {
	return &UserHandler{userService: us, verifier: verifier}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	userRoutes := router.Group("/users")
	{
		userRoutes.PUT("/me", h.verifier.Authenticate(), h.UpsertMe)
		userRoutes.GET("/:id", h.GetUser)
	}
}

func (h *UserHandler) UpsertMe(c *gin.Context) {
	var req domain.UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request payload: " + err.Error()})
		return
	}
	caller, _ := identity.FromContext(c)

	user, err := h.userService.UpsertProfile(c.Request.Context(), caller, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		logger.Error("UpsertMe: service error", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		logger.Error("GetUser: service error", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve user"})
		return
	}
	c.JSON(http.StatusOK, user)
}
