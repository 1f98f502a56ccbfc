package http

import (
	"strconv"
	"strings"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/service"
	"SurfSense/pkg/back"
	"SurfSense/pkg/xerr"
	"SurfSense/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentHandler 文档索引与检索 HTTP Handler
type DocumentHandler struct {
	indexingSvc service.IndexingService
	searchSvc   service.SearchService
}

func NewDocumentHandler(indexingSvc service.IndexingService, searchSvc service.SearchService) *DocumentHandler {
	return &DocumentHandler{indexingSvc: indexingSvc, searchSvc: searchSvc}
}

// RegisterRoutes 挂载到需要 JWT 的分组
func (h *DocumentHandler) RegisterRoutes(g gin.IRoutes) {
	g.POST("/documents/upload", h.Upload)
	g.POST("/documents/batch", h.EnqueueBatch)
	g.GET("/documents/:id", h.GetDocument)
	g.POST("/search", h.Search)
}

// Upload 同步索引上传文件
//
// 路由: POST /documents/upload
// 请求体: UploadDocumentRequest
// 响应体: DocumentStatusRespond
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req request.UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind upload request failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	uuid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.indexingSvc.IndexUpload(c.Request.Context(), req, uuid)
	if err != nil {
		zlog.Error("upload index failed", zap.String("filename", req.Filename), zap.Error(err))
	}
	back.Result(c, data, err)
}

// EnqueueBatch 连接器批次入队
//
// 路由: POST /documents/batch
// 请求体: IndexBatchRequest
// 响应体: EnqueueRespond
func (h *DocumentHandler) EnqueueBatch(c *gin.Context) {
	var req request.IndexBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("bind batch request failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	uuid, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.indexingSvc.Enqueue(c.Request.Context(), req, uuid)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Accepted(c, data)
}

// GetDocument 路由: GET /documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.indexingSvc.GetDocument(c.Request.Context(), id)
	back.Result(c, data, err)
}

// Search 路由: POST /search
func (h *DocumentHandler) Search(c *gin.Context) {
	var req request.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.searchSvc.Search(c.Request.Context(), req)
	if err != nil {
		zlog.Error("search failed", zap.Int64("search_space_id", req.SearchSpaceID), zap.Error(err))
	}
	back.Result(c, data, err)
}

func currentUser(c *gin.Context) (string, bool) {
	uuid := strings.TrimSpace(c.GetString("uuid"))
	if uuid == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return "", false
	}
	return uuid, true
}
