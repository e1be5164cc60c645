package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
)

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"empty", "", 50, ""},
		{"short text unchanged", "  keeps   its spacing ", 50, "  keeps   its spacing "},
		{"exactly at limit", "one two three", 3, "one two three"},
		{"over limit", "one two\nthree  four", 2, "one two …"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWords(tt.in, tt.limit))
		})
	}

	long := strings.Repeat("word ", 60)
	got := TruncateWords(long, DefaultPreviewWords)
	assert.True(t, strings.HasSuffix(got, " …"))
	assert.Len(t, strings.Fields(strings.TrimSuffix(got, " …")), DefaultPreviewWords)
}

func TestFileListPagination(t *testing.T) {
	env := newTestEnv(t)
	svc := NewFileListService(env.apps, env.files, FileListOptions{}, env.logger)
	ctx := context.Background()

	files := make([]*model.File, 0, 57)
	for i := range 57 {
		name := fmt.Sprintf("file%02d.go", i)
		files = append(files, &model.File{Name: name, FullPath: "pkg/" + name, Folder: nullText("pkg")})
	}
	appID, ids := env.seed(t, "big", files...)

	t.Run("last page", func(t *testing.T) {
		res, err := svc.List(ctx, FileListQuery{AppID: appID, Page: 3})
		require.NoError(t, err)
		assert.Equal(t, "big", res.App.Name)
		assert.Equal(t, 3, res.Pagination.Page)
		assert.Equal(t, 3, res.Pagination.TotalPages)
		assert.Equal(t, 57, res.Pagination.Total)
		assert.Equal(t, 51, res.Pagination.From)
		assert.Equal(t, 57, res.Pagination.To)
		require.Len(t, res.Items, 7)
		assert.Equal(t, 51, res.Items[0].RowNumber)
		assert.Equal(t, ids[50], res.Items[0].ID)
	})

	t.Run("page beyond range clamps", func(t *testing.T) {
		res, err := svc.List(ctx, FileListQuery{AppID: appID, Page: 99})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Pagination.Page)
		assert.Len(t, res.Items, 7)
	})

	t.Run("page below one clamps", func(t *testing.T) {
		res, err := svc.List(ctx, FileListQuery{AppID: appID, Page: -4})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Pagination.Page)
		assert.Equal(t, 1, res.Pagination.From)
		assert.Equal(t, 25, res.Pagination.To)
		assert.Equal(t, ids[0], res.Items[0].ID)
	})

	t.Run("page size is capped", func(t *testing.T) {
		res, err := svc.List(ctx, FileListQuery{AppID: appID, PageSize: 5000})
		require.NoError(t, err)
		assert.Equal(t, MaxPageSize, res.Pagination.PageSize)
		assert.Len(t, res.Items, 57)
		assert.Equal(t, 1, res.Pagination.TotalPages)
	})

	t.Run("search", func(t *testing.T) {
		res, err := svc.List(ctx, FileListQuery{AppID: appID, Search: "  FILE1  "})
		require.NoError(t, err)
		assert.Equal(t, "FILE1", res.Search)
		assert.Equal(t, 10, res.Pagination.Total)
		assert.Equal(t, "file10.go", res.Items[0].Name)
		assert.Equal(t, 1, res.Items[0].RowNumber)
	})

	t.Run("search without matches", func(t *testing.T) {
		res, err := svc.List(ctx, FileListQuery{AppID: appID, Search: "nothing-here"})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, 1, res.Pagination.TotalPages)
		assert.Equal(t, 0, res.Pagination.From)
		assert.Equal(t, 0, res.Pagination.To)
	})
}

func TestFileListRowContent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewFileListService(env.apps, env.files, FileListOptions{PreviewWords: 3}, env.logger)
	ctx := context.Background()

	appID, ids := env.seed(t, "app",
		&model.File{Name: "a.js", FullPath: "a.js"},
		&model.File{Name: "b.js", FullPath: "src/b.js", Folder: nullText("src")},
	)
	_, err := env.db.GetDB().Exec("INSERT INTO file_metadata (file_id, line_count) VALUES (?, ?)", ids[1], 88)
	require.NoError(t, err)
	require.NoError(t, env.analyses.UpsertField(ctx, ids[1], model.KindFunction, "one two three four five"))
	require.NoError(t, env.files.UpdateGraph(ctx, ids[1], "new vis.Network(c, d, o);"))
	require.NoError(t, env.files.UpdateGraph(ctx, ids[0], "   "))

	res, err := svc.List(ctx, FileListQuery{AppID: appID})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	a, b := res.Items[0], res.Items[1]
	assert.Nil(t, a.LineCount)
	assert.Empty(t, a.Folder)
	assert.Empty(t, a.FunctionPreview)
	assert.False(t, a.HasGraph)

	require.NotNil(t, b.LineCount)
	assert.Equal(t, int64(88), *b.LineCount)
	assert.Equal(t, "src", b.Folder)
	assert.Equal(t, "one two three …", b.FunctionPreview)
	assert.Empty(t, b.DBRelationPreview)
	assert.True(t, b.HasGraph)
}

func TestFileListUnknownApplication(t *testing.T) {
	env := newTestEnv(t)
	svc := NewFileListService(env.apps, env.files, FileListOptions{}, env.logger)

	_, err := svc.List(context.Background(), FileListQuery{AppID: 31337})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestListApplications(t *testing.T) {
	env := newTestEnv(t)
	svc := NewFileListService(env.apps, env.files, FileListOptions{}, env.logger)

	first, _ := env.seed(t, "first")
	second, _ := env.seed(t, "second")

	apps, err := svc.ListApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, second, apps[0].ID)
	assert.Equal(t, first, apps[1].ID)
}
