package model

import (
	"database/sql"
	"strings"
)

// File 应用中的单个源文件
type File struct {
	ID        int64            `db:"id"`
	AppID     int64            `db:"app_id"`
	Name      string           `db:"nama_file"`
	Folder    sql.Null[string] `db:"nama_folder"`
	FullPath  string           `db:"full_path"`
	Content   sql.Null[string] `db:"content_file"`
	JSONGraph sql.Null[string] `db:"json_graph"`
}

// HasGraph reports whether a graph script has been generated.
func (f *File) HasGraph() bool {
	return HasScript(f.JSONGraph)
}

// HasScript is true when s holds something other than whitespace.
func HasScript(s sql.Null[string]) bool {
	return s.Valid && strings.TrimSpace(s.V) != ""
}

// FileMetadata is written by the external metadata extractor and only read here.
type FileMetadata struct {
	FileID     int64            `db:"file_id"`
	LineCount  sql.Null[int64]  `db:"line_count"`
	Imports    sql.Null[string] `db:"imports"`
	SQLQueries sql.Null[string] `db:"sql_queries"`
}

// FileRow is one file joined with its metadata and stored analyses.
type FileRow struct {
	File
	LineCount sql.Null[int64]
	Analysis  AnalysisRecord
}

// SummarySource is the per-file input of the application summary payload.
type SummarySource struct {
	FullPath   string
	LineCount  sql.Null[int64]
	Imports    sql.Null[string]
	SQLQueries sql.Null[string]
	Content    sql.Null[string]
}

// NullPtr converts a nullable column into a pointer for JSON output.
func NullPtr[T any](n sql.Null[T]) *T {
	if !n.Valid {
		return nil
	}
	v := n.V
	return &v
}
