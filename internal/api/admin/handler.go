package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liliang-cn/gmassist/internal/api/respond"
	"github.com/liliang-cn/gmassist/internal/domain"
	"github.com/liliang-cn/gmassist/internal/service"
)

// Handler handles admin API requests
type Handler struct {
	adminService  *service.AdminService
	ingestService *service.IngestService
}

// NewHandler creates a new admin handler
func NewHandler(adminService *service.AdminService, ingestService *service.IngestService) *Handler {
	return &Handler{
		adminService:  adminService,
		ingestService: ingestService,
	}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	scripts := r.Group("/scripts")
	{
		scripts.POST("", h.CreateScript)
		scripts.GET("", h.ListScripts)
		scripts.POST("/upload", h.UploadScript)
		scripts.GET("/:id", h.GetScript)
		scripts.PUT("/:id", h.UpdateScript)
		scripts.DELETE("/:id", h.DeleteScript)
	}

	r.GET("/stats", h.GetStats)
}

// Script handlers

func (h *Handler) CreateScript(c *gin.Context) {
	var req domain.CreateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	script, err := h.adminService.CreateScript(c.Request.Context(), &req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, script)
}

func (h *Handler) ListScripts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	result, err := h.adminService.ListScripts(c.Request.Context(), page, pageSize)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetScript(c *gin.Context) {
	script, err := h.adminService.GetScript(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, script)
}

func (h *Handler) UpdateScript(c *gin.Context) {
	var req domain.UpdateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	script, err := h.adminService.UpdateScript(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, script)
}

func (h *Handler) DeleteScript(c *gin.Context) {
	if err := h.adminService.DeleteScript(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "script deleted"})
}

func (h *Handler) UploadScript(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	script, err := h.ingestService.UploadScript(c.Request.Context(), file, c.PostForm("title"), c.PostForm("description"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, script)
}

// Stats handler

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
