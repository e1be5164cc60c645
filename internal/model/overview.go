package model

import "time"

// StoredAnalysis is a read-only view of one cached analysis kind.
type StoredAnalysis struct {
	FileID   int64        `json:"fileId"`
	Kind     AnalysisKind `json:"kind"`
	Title    string       `json:"title"`
	Content  string       `json:"content"`
	Analyzed bool         `json:"analyzed"`
}

// FileAnalyses carries every stored analysis of one file, untruncated.
type FileAnalyses struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	FullPath     string     `json:"fullPath"`
	Function     *string    `json:"function"`
	FileRelation *string    `json:"fileRelation"`
	DBRelation   *string    `json:"dbRelation"`
	AnalyzedAt   *time.Time `json:"analyzedAt,omitempty"`
}

// AnalysisOverview lists the stored analyses of every file of an application.
type AnalysisOverview struct {
	App   *Application    `json:"app"`
	Files []*FileAnalyses `json:"files"`
}
