package ticker

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/giorgiojulius/cryptojulius/internal/apierr"
)

type addTickerRequest struct {
	Ticker string `json:"ticker" binding:"required"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListTickers(c *gin.Context) {
	tickers, err := h.service.List(c.Request.Context())
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, tickers)
}

func (h *Handler) AddTicker(c *gin.Context) {
	var req addTickerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticker"})
		return
	}

	added, err := h.service.Add(c.Request.Context(), req.Ticker)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": req.Ticker, "added": added})
}

func (h *Handler) RemoveTicker(c *gin.Context) {
	removed, err := h.service.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticker not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) TickerData(c *gin.Context) {
	data, err := h.service.Data(c.Request.Context())
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) Analyze(c *gin.Context) {
	analysis, err := h.service.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// RegisterRoutes mounts the handlers. guards wrap the mutating routes only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, guards ...gin.HandlerFunc) {
	tickers := router.Group("/tickers")
	{
		tickers.GET("", h.ListTickers)
		tickers.GET("/data", h.TickerData)

		mutating := tickers.Group("", guards...)
		mutating.POST("", h.AddTicker)
		mutating.DELETE("/:id", h.RemoveTicker)
	}
	router.GET("/analyze/:id", h.Analyze)
}
