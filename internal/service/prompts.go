package service

import (
	"fmt"

	"code-reviewer/internal/errs"
	"code-reviewer/internal/model"
)

// SystemPrompt is sent with every provider call.
const SystemPrompt = "You are a professional code reviewer."

const (
	functionPromptFmt     = "Explain the main purpose of this file and the functions it defines:\n%s"
	fileRelationPromptFmt = "Which other files does this file use or call? Explain each relation:\n%s"
	dbRelationPromptFmt   = "Which databases are involved in this file? Look for SQL queries and database connections:\n%s"

	summaryPromptFmt = "Analyze the following application payload and write a summary:\n" +
		"1) count the files; 2) list the database tables and fields; " +
		"3) identify the most central files; 4) summarize the architecture.\n\n%s"

	graphPromptFmt = "Read the source file below and produce a dependency graph of its functions, " +
		"classes, imported modules and database tables using the vis-network library.\n" +
		"Reply with a single ```javascript fenced block that defines `nodes` and `edges` " +
		"as vis.DataSet instances and ends with " +
		"`new vis.Network(document.getElementById('graph'), { nodes, edges }, options);`. " +
		"Do not include HTML or script tags.\n\n%s"
)

// analysisPrompt is the only place where a kind selects a prompt.
func analysisPrompt(kind model.AnalysisKind, source string) (string, error) {
	switch kind {
	case model.KindFunction:
		return fmt.Sprintf(functionPromptFmt, source), nil
	case model.KindFileRelation:
		return fmt.Sprintf(fileRelationPromptFmt, source), nil
	case model.KindDBRelation:
		return fmt.Sprintf(dbRelationPromptFmt, source), nil
	default:
		return "", fmt.Errorf("%w: %q", errs.ErrUnknownKind, kind)
	}
}

func summaryPrompt(payload string) string {
	return fmt.Sprintf(summaryPromptFmt, payload)
}

func graphPrompt(source string) string {
	return fmt.Sprintf(graphPromptFmt, source)
}
