// internal/handler/api.go - 代码评审 HTTP API 处理器
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"code-reviewer/internal/dto"
	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
	"code-reviewer/internal/service"
	"code-reviewer/pkg/logger"
	"code-reviewer/pkg/response"
)

// APIHandler serves the upload, listing, analysis and graph endpoints.
type APIHandler struct {
	ingest         service.IngestService
	analysis       service.AnalysisService
	summary        service.SummaryService
	files          service.FileListService
	graph          service.GraphService
	maxUploadBytes int64
	logger         logger.Logger
}

// NewAPIHandler 创建 API 处理器
func NewAPIHandler(
	ingest service.IngestService,
	analysis service.AnalysisService,
	summary service.SummaryService,
	files service.FileListService,
	graph service.GraphService,
	maxUploadBytes int64,
	logger logger.Logger,
) *APIHandler {
	return &APIHandler{
		ingest:         ingest,
		analysis:       analysis,
		summary:        summary,
		files:          files,
		graph:          graph,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *APIHandler) RegisterRoutes(r gin.IRouter) {
	apps := r.Group("/apps")
	{
		apps.GET("", h.ListApps)
		apps.POST("", h.UploadApp)
		apps.GET("/:id", h.AppDetail)
		apps.GET("/:id/analysis", h.AppAnalysis)
		apps.GET("/:id/summary", h.AppSummary)
	}

	files := r.Group("/files")
	{
		files.GET("/:id/analysis/:kind", h.FileAnalysis)
		files.GET("/:id/analysis/:kind/stored", h.StoredAnalysis)
		files.POST("/:id/graph", h.GenerateGraph)
		files.GET("/:id/graph", h.ViewGraph)
	}
}

// ListApps 应用列表
// @Router /api/v1/apps [get]
func (h *APIHandler) ListApps(c *gin.Context) {
	apps, err := h.files.ListApplications(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if apps == nil {
		apps = []*model.Application{}
	}
	response.OkJson(c, apps)
}

// UploadApp 上传 zip 并导入
// @Accept multipart/form-data
// @Param app_name formData string false "application name, defaults to MyApp"
// @Param file formData file true "zip archive"
// @Router /api/v1/apps [post]
func (h *APIHandler) UploadApp(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile(dto.UploadFieldFile)
	if err != nil {
		if bodyTooLarge(err) {
			h.logger.Warn("upload rejected: body exceeds %d bytes", h.maxUploadBytes)
			response.ErrorWithCode(c, http.StatusRequestEntityTooLarge, errs.ErrBadRequest, err)
			return
		}
		h.badRequest(c, errs.NewMissingParamError(dto.UploadFieldFile))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer file.Close()

	appName := c.PostForm(dto.UploadFieldAppName)
	h.logger.Info("upload request: app=%q file=%s size=%d", appName, header.Filename, header.Size)

	result, err := h.ingest.IngestUpload(c.Request.Context(), appName, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, &dto.UploadResponse{
		AppID:   result.AppID,
		AppName: result.AppName,
		Files:   result.Files,
		Skipped: result.Skipped,
	})
}

// bodyTooLarge reports whether err came from the MaxBytesReader limit.
// mime/multipart does not always wrap the underlying read error.
func bodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// AppDetail 应用文件分页列表
// @Param page query int false "page number, 1-based"
// @Param size query int false "page size"
// @Param q query string false "search term"
// @Router /api/v1/apps/{id} [get]
func (h *APIHandler) AppDetail(c *gin.Context) {
	var uri dto.AppURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}
	var req dto.FileListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.files.List(c.Request.Context(), service.FileListQuery{
		AppID:    uri.ID,
		Page:     req.Page,
		PageSize: req.Size,
		Search:   req.Q,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, result)
}

// AppAnalysis 应用全部已存分析
// @Router /api/v1/apps/{id}/analysis [get]
func (h *APIHandler) AppAnalysis(c *gin.Context) {
	var uri dto.AppURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}

	overview, err := h.analysis.Overview(c.Request.Context(), uri.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, overview)
}

// AppSummary 应用汇总分析
// @Param force query bool false "regenerate instead of returning the cached summary"
// @Router /api/v1/apps/{id}/summary [get]
func (h *APIHandler) AppSummary(c *gin.Context) {
	var uri dto.AppURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}
	var req dto.ForceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.summary.GetOrCompute(c.Request.Context(), uri.ID, req.Force)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, &dto.SummaryResponse{
		AppID:     uri.ID,
		Text:      result.Text,
		FromCache: result.FromCache,
	})
}

// FileAnalysis 单文件分析
// @Param kind path string true "fungsi, relasi_file or relasi_db"
// @Param force query bool false "regenerate instead of returning the cached analysis"
// @Router /api/v1/files/{id}/analysis/{kind} [get]
func (h *APIHandler) FileAnalysis(c *gin.Context) {
	var uri dto.FileAnalysisURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}
	var req dto.ForceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	kind, err := model.ParseAnalysisKind(uri.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.analysis.GetOrCompute(c.Request.Context(), uri.ID, kind, req.Force)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, &dto.AnalysisResponse{
		FileID:    uri.ID,
		Kind:      kind,
		Title:     kind.Label(),
		Text:      result.Text,
		FromCache: result.FromCache,
	})
}

// StoredAnalysis 读取已存分析，不调用模型
// @Router /api/v1/files/{id}/analysis/{kind}/stored [get]
func (h *APIHandler) StoredAnalysis(c *gin.Context) {
	var uri dto.FileAnalysisURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}
	kind, err := model.ParseAnalysisKind(uri.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}

	stored, err := h.analysis.Stored(c.Request.Context(), uri.ID, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, stored)
}

// GenerateGraph 生成依赖图脚本
// @Router /api/v1/files/{id}/graph [post]
func (h *APIHandler) GenerateGraph(c *gin.Context) {
	var uri dto.FileURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}

	script, err := h.graph.Generate(c.Request.Context(), uri.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, &dto.GraphResponse{FileID: uri.ID, Script: script})
}

// ViewGraph 查看依赖图脚本
// @Router /api/v1/files/{id}/graph [get]
func (h *APIHandler) ViewGraph(c *gin.Context) {
	var uri dto.FileURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.badRequest(c, err)
		return
	}

	view, err := h.graph.View(c.Request.Context(), uri.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OkJson(c, view)
}
