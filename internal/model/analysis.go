package model

import (
	"database/sql"
	"fmt"
	"time"

	"code-reviewer/internal/errs"
)

// AnalysisKind 单文件分析类型
type AnalysisKind string

const (
	KindFunction     AnalysisKind = "fungsi"
	KindFileRelation AnalysisKind = "relasi_file"
	KindDBRelation   AnalysisKind = "relasi_db"
)

// AnalysisKinds lists every kind in display order.
func AnalysisKinds() []AnalysisKind {
	return []AnalysisKind{KindFunction, KindFileRelation, KindDBRelation}
}

// ParseAnalysisKind returns an error wrapping errs.ErrUnknownKind for values
// outside the closed set.
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	k := AnalysisKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", errs.ErrUnknownKind, s)
	}
	return k, nil
}

func (k AnalysisKind) Valid() bool {
	switch k {
	case KindFunction, KindFileRelation, KindDBRelation:
		return true
	}
	return false
}

func (k AnalysisKind) Label() string {
	switch k {
	case KindFunction:
		return "Function summary"
	case KindFileRelation:
		return "File relations"
	case KindDBRelation:
		return "Database relations"
	}
	return string(k)
}

// AnalysisRecord holds the three independently cached analyses of one file.
type AnalysisRecord struct {
	FileID              int64               `db:"file_id"`
	FunctionSummary     sql.Null[string]    `db:"analisa_fungsi"`
	FileRelationSummary sql.Null[string]    `db:"analisa_relasi_file"`
	DBRelationSummary   sql.Null[string]    `db:"analisa_relasi_db"`
	CreatedAt           sql.Null[time.Time] `db:"created_at"`
}

// Field returns the slot for kind; unknown kinds yield an invalid value.
func (r *AnalysisRecord) Field(kind AnalysisKind) sql.Null[string] {
	switch kind {
	case KindFunction:
		return r.FunctionSummary
	case KindFileRelation:
		return r.FileRelationSummary
	case KindDBRelation:
		return r.DBRelationSummary
	}
	return sql.Null[string]{}
}

// AppSummary 应用整体分析
type AppSummary struct {
	AppID     int64               `db:"app_id"`
	Summary   sql.Null[string]    `db:"summary"`
	CreatedAt sql.Null[time.Time] `db:"created_at"`
}

// AnalysisResult is what a cache lookup hands back to callers.
type AnalysisResult struct {
	Text      string `json:"text"`
	FromCache bool   `json:"fromCache"`
}
