package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
	"code-reviewer/test/mocks"
)

func TestBuildSummaryPayload(t *testing.T) {
	sources := []*model.SummarySource{
		{
			FullPath:   "src/db.js",
			LineCount:  sql.Null[int64]{V: 42, Valid: true},
			Imports:    nullText("import mysql from 'mysql'"),
			SQLQueries: nullText("SELECT * FROM users"),
			Content:    nullText("const db = mysql.connect()"),
		},
		{
			FullPath: "README.md",
		},
	}

	want := "- src/db.js | lines=42\n" +
		"imports:\nimport mysql from 'mysql'\n" +
		"sql:\nSELECT * FROM users\n" +
		"content:\nconst db = mysql.connect()\n\n" +
		"- README.md | lines=unknown\n" +
		"imports:\n\n" +
		"sql:\n\n" +
		"content:\n\n\n"

	assert.Equal(t, want, BuildSummaryPayload(sources, DefaultSnippetChars))
	assert.Empty(t, BuildSummaryPayload(nil, DefaultSnippetChars))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", snippet("abc", 3))
	assert.Equal(t, "ab"+truncatedMarker, snippet("abc", 2))
	// counted in characters, never split inside one
	assert.Equal(t, "héé"+truncatedMarker, snippet("héééé", 3))
	assert.Equal(t, "", snippet("", 5))

	long := strings.Repeat("x", DefaultSnippetChars+1)
	got := snippet(long, DefaultSnippetChars)
	assert.Equal(t, strings.Repeat("x", DefaultSnippetChars)+"...\n[truncated]", got)
}

func TestSummaryGetOrCompute(t *testing.T) {
	env := newTestEnv(t)
	provider := &mocks.MockProvider{}
	svc := NewSummaryService(env.apps, env.files, env.analyses, provider, 0, nil, env.logger)
	ctx := context.Background()

	appID, _ := env.seed(t, "shop",
		&model.File{Name: "a.js", FullPath: "a.js", Content: nullText("alpha")},
		&model.File{Name: "b.js", FullPath: "b.js", Content: nullText("beta")},
	)

	payload, err := svc.BuildPayload(ctx, appID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, "- a.js | lines=unknown\n"))
	assert.Less(t, strings.Index(payload, "- a.js"), strings.Index(payload, "- b.js"))

	provider.On("Complete", mock.Anything, SystemPrompt, summaryPrompt(payload)).Return("Two files.", nil).Once()

	res, err := svc.GetOrCompute(ctx, appID, false)
	require.NoError(t, err)
	assert.Equal(t, "Two files.", res.Text)
	assert.False(t, res.FromCache)

	res, err = svc.GetOrCompute(ctx, appID, false)
	require.NoError(t, err)
	assert.Equal(t, "Two files.", res.Text)
	assert.True(t, res.FromCache)

	provider.On("Complete", mock.Anything, SystemPrompt, summaryPrompt(payload)).Return("Still two files.", nil).Once()
	res, err = svc.GetOrCompute(ctx, appID, true)
	require.NoError(t, err)
	assert.Equal(t, "Still two files.", res.Text)

	stored, err := env.analyses.GetSummary(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, "Still two files.", stored.Summary.V)
	assert.Equal(t, 1, env.count(t, "app_summary"))

	provider.AssertExpectations(t)
}

func TestSummaryUnknownApplication(t *testing.T) {
	env := newTestEnv(t)
	provider := &mocks.MockProvider{}
	svc := NewSummaryService(env.apps, env.files, env.analyses, provider, 0, nil, env.logger)

	_, err := svc.GetOrCompute(context.Background(), 77, true)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}
