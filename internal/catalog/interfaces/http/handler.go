// Package http 商品目录 HTTP 接口
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/ecommerce/internal/catalog/application"
	"github.com/wyfcoding/ecommerce/pkg/middleware"
	"github.com/wyfcoding/ecommerce/pkg/response"
)

// CatalogHandler 商品与分类接口
type CatalogHandler struct {
	products   *application.ProductService
	categories *application.CategoryService
}

func NewCatalogHandler(products *application.ProductService, categories *application.CategoryService) *CatalogHandler {
	return &CatalogHandler{products: products, categories: categories}
}

// RegisterRoutes 公开的浏览接口与管理员维护接口
func (h *CatalogHandler) RegisterRoutes(groups middleware.RouteGroups) {
	pub := groups.Public
	pub.GET("/products", h.ListProducts)
	pub.GET("/products/:id", h.GetProduct)
	pub.GET("/categories", h.ListCategories)
	pub.GET("/categories/:id", h.GetCategory)

	products := groups.Admin.Group("/products")
	{
		products.GET("", h.AdminListProducts)
		products.GET("/:id", h.AdminGetProduct)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PATCH("/:id/toggle", h.ToggleProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}

	categories := groups.Admin.Group("/categories")
	{
		categories.POST("", h.CreateCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
	}
}

func parseListQuery(c *gin.Context) (application.ListProductsQuery, bool) {
	q := application.ListProductsQuery{
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
		Search:    c.DefaultQuery("searchTerm", c.Query("search")),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	for name, dst := range map[string]**decimal.Decimal{"minPrice": &q.MinPrice, "maxPrice": &q.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "Invalid "+name)
			return q, false
		}
		*dst = &v
	}
	if raw := c.Query("categoryId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "Invalid categoryId")
			return q, false
		}
		cid := uint(id)
		q.CategoryID = &cid
	}
	return q, true
}

func (h *CatalogHandler) listProducts(c *gin.Context, includeInactive bool) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	q.IncludeInactive = includeInactive
	items, pagination, err := h.products.ListProducts(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, items, pagination)
}

// ListProducts 只返回上架商品
func (h *CatalogHandler) ListProducts(c *gin.Context) { h.listProducts(c, false) }

// AdminListProducts 包含下架商品
func (h *CatalogHandler) AdminListProducts(c *gin.Context) { h.listProducts(c, true) }

func (h *CatalogHandler) getProduct(c *gin.Context, includeInactive bool) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.products.GetProduct(c.Request.Context(), id, includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

func (h *CatalogHandler) GetProduct(c *gin.Context)      { h.getProduct(c, false) }
func (h *CatalogHandler) AdminGetProduct(c *gin.Context) { h.getProduct(c, true) }

// ProductRequest 创建/更新商品；clearPrice 为 true 时清空价格
type ProductRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	ClearPrice    bool             `json:"clearPrice"`
	StockQuantity *int             `json:"stockQuantity"`
	SKU           *string          `json:"sku"`
	ImageURL      *string          `json:"imageUrl"`
	IsActive      *bool            `json:"isActive"`
	CategoryID    *uint            `json:"categoryId"`
}

func (r ProductRequest) input() application.ProductInput {
	return application.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		ClearPrice:    r.ClearPrice,
		StockQuantity: r.StockQuantity,
		SKU:           r.SKU,
		ImageURL:      r.ImageURL,
		IsActive:      r.IsActive,
		CategoryID:    r.CategoryID,
	}
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.products.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p, "Product created successfully")
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.products.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, p, "Product updated successfully")
}

func (h *CatalogHandler) ToggleProduct(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.products.ToggleProduct(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	msg := "Product deactivated"
	if p.IsActive {
		msg = "Product activated"
	}
	response.SuccessWithMessage(c, p, msg)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "Product deleted successfully")
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	items, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, items)
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	cat, err := h.categories.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cat)
}

type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "Category name is required")
		return
	}
	desc := ""
	if req.Description != nil {
		desc = *req.Description
	}
	cat, err := h.categories.Create(c.Request.Context(), *req.Name, desc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cat, "Category created successfully")
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, cat, "Category updated successfully")
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := response.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, nil, "Category deleted successfully")
}
