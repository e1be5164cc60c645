// internal/dto/api.go - HTTP API请求和响应数据结构定义
package dto

import (
	"time"

	"code-reviewer/internal/model"
)

// AppURI 应用路径参数
type AppURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// FileURI 文件路径参数
type FileURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// FileAnalysisURI 文件分析路径参数
type FileAnalysisURI struct {
	ID   int64  `uri:"id" binding:"required,min=1"`
	Kind string `uri:"kind" binding:"required"`
}

// FileListRequest 文件列表查询参数
type FileListRequest struct {
	Page int    `form:"page"`
	Size int    `form:"size"`
	Q    string `form:"q"`
}

// ForceRequest selects regeneration instead of the cached value.
type ForceRequest struct {
	Force bool `form:"force"`
}

// UploadForm 上传表单字段名
const (
	UploadFieldAppName = "app_name"
	UploadFieldFile    = "file"
)

// UploadResponse 上传结果
type UploadResponse struct {
	AppID   int64  `json:"appId"`
	AppName string `json:"appName"`
	Files   int    `json:"files"`
	Skipped int    `json:"skipped"`
}

// AnalysisResponse 单文件分析结果
type AnalysisResponse struct {
	FileID    int64              `json:"fileId"`
	Kind      model.AnalysisKind `json:"kind"`
	Title     string             `json:"title"`
	Text      string             `json:"text"`
	FromCache bool               `json:"fromCache"`
}

// SummaryResponse 应用汇总结果
type SummaryResponse struct {
	AppID     int64  `json:"appId"`
	Text      string `json:"text"`
	FromCache bool   `json:"fromCache"`
}

// GraphResponse 图脚本生成结果
type GraphResponse struct {
	FileID int64  `json:"fileId"`
	Script string `json:"script"`
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version,omitempty"`
	Time    time.Time `json:"time"`
}
