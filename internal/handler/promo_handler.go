package handler

import (
	"github.com/belmonthotel/service-reservation/internal/application"
	"github.com/belmonthotel/service-reservation/internal/auth"
	"github.com/belmonthotel/service-reservation/internal/middleware"
	"github.com/belmonthotel/service-reservation/internal/response"
	"github.com/gin-gonic/gin"
)

// PromoHandler handles HTTP requests for promo code operations.
type PromoHandler struct {
	service *application.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(service *application.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

// RegisterRoutes registers the guest-facing promo routes.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	promos := r.Group("/promos")
	promos.Use(middleware.AuthMiddleware(jwtManager))
	{
		promos.GET("", h.ListActivePromos)
		promos.POST("/validate", h.ValidatePromo)
	}
}

// ListActivePromos handles GET /api/v1/promos
func (h *PromoHandler) ListActivePromos(c *gin.Context) {
	dtos, err := h.service.ListActivePromos(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dtos)
}

// ValidatePromo handles POST /api/v1/promos/validate
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	var req application.ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidatePromo(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
