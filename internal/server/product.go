package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	productdomain "github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
)

func (s *Server) ListProducts(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	minPrice, err := parseOptionalDecimal(c.Query("minPrice"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	maxPrice, err := parseOptionalDecimal(c.Query("maxPrice"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := productdomain.ListProductRequest{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Page:     page,
	}

	resp, err := s.productSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusCreated, product, "product created")
}

func (s *Server) ListPopularProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			AbortWithError(c, invalidRequestError())
			return
		}
		limit = parsed
	}

	popular, err := s.productSvc.Popular(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if popular == nil {
		popular = []productdomain.PopularProduct{}
	}

	respond(c, http.StatusOK, popular)
}

func (s *Server) GetProductByID(c *gin.Context) {
	product, err := s.productSvc.GetByID(c.Request.Context(), productdomain.GetProductRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, product)
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req productdomain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.productSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, product, "product updated")
}

func (s *Server) DeleteProduct(c *gin.Context) {
	if err := s.productSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, nil, "product deleted")
}
