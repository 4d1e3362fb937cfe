package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/ridloal/agri-traceability/internal/product/repository"
	"github.com/ridloal/agri-traceability/internal/product/service"
)

type ProductHandler struct {
	productService service.ProductService
	verifier       *identity.Verifier
}

func NewProductHandler(ps service.ProductService, verifier *identity.Verifier) *ProductHandler {
	return &ProductHandler{productService: ps, verifier: verifier}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	productRoutes := router.Group("/products")
	{
		// Public reads
		productRoutes.GET("", h.ListProducts)
		productRoutes.GET("/", h.ListProducts)
		productRoutes.GET("/qr/:code", h.GetProductByQRCode)
		productRoutes.GET("/:id", h.GetProduct)
		productRoutes.GET("/:id/votes", h.ListVotes)

		auth := h.verifier.Authenticate()
		productRoutes.POST("", auth, identity.RequireRole(identity.RoleProducer), h.CreateProduct)
		productRoutes.POST("/", auth, identity.RequireRole(identity.RoleProducer), h.CreateProduct)
		productRoutes.POST("/:id/vote", auth, identity.RequireRole(identity.RoleValidator), h.CastVote)
		productRoutes.POST("/:id/accept", auth, identity.RequireRole(identity.RoleDistributor), h.AcceptForDistribution)
		productRoutes.POST("/:id/retail", auth, identity.RequireRole(identity.RoleRetailer), h.AcceptForRetail)
	}
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req domain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}
	caller, _ := identity.FromContext(c)

	product, err := h.productService.CreateProduct(c.Request.Context(), caller, req)
	if err != nil {
		h.writeError(c, "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productService.ListProducts(c.Request.Context())
	if err != nil {
		h.writeError(c, "ListProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProductByQRCode(c *gin.Context) {
	product, err := h.productService.GetProductByQRCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, "GetProductByQRCode", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) ListVotes(c *gin.Context) {
	votes, err := h.productService.ListVotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "ListVotes", err)
		return
	}
	c.JSON(http.StatusOK, votes)
}

func (h *ProductHandler) CastVote(c *gin.Context) {
	var req domain.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}
	caller, _ := identity.FromContext(c)

	product, err := h.productService.CastVote(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		h.writeError(c, "CastVote", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) AcceptForDistribution(c *gin.Context) {
	caller, _ := identity.FromContext(c)
	product, err := h.productService.AcceptForDistribution(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.writeError(c, "AcceptForDistribution", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) AcceptForRetail(c *gin.Context) {
	caller, _ := identity.FromContext(c)
	product, err := h.productService.AcceptForRetail(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.writeError(c, "AcceptForRetail", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// writeError maps service errors to status codes. Anything unrecognised is a
// 500 with a generic message; the detail only goes to the log.
func (h *ProductHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		logger.Error(op+": service error", err, logger.Fields{"path": c.Request.URL.Path})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
