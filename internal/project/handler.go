package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/giorgiojulius/cryptojulius/internal/apierr"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Search(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Search(c.Request.Context(), c.Query("q")))
}

func (h *Handler) Preview(c *gin.Context) {
	preview, err := h.service.Preview(c.Request.Context(), c.Param("chainId"), c.Param("address"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) ListProjects(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.List(c.Request.Context()))
}

func (h *Handler) AddProject(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, created, err := h.service.Add(c.Request.Context(), req)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, view)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) UpdateMoatFactor(c *gin.Context) {
	var req MoatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.service.SetMoatFactor(c.Request.Context(), c.Param("chainId"), c.Param("address"), req)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) RemoveProject(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("chainId"), c.Param("address")); err != nil {
		apierr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Refresh(c *gin.Context) {
	result, err := h.service.Refresh(c.Request.Context())
	if err != nil && result == nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterRoutes mounts the handlers. guards wrap the mutating routes only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, guards ...gin.HandlerFunc) {
	router.GET("/search", h.Search)
	router.GET("/tokens/:chainId/:address", h.Preview)

	projects := router.Group("/projects")
	{
		projects.GET("", h.ListProjects)

		mutating := projects.Group("", guards...)
		mutating.POST("", h.AddProject)
		mutating.POST("/refresh", h.Refresh)
		mutating.PATCH("/:chainId/:address", h.UpdateMoatFactor)
		mutating.DELETE("/:chainId/:address", h.RemoveProject)
	}
}
