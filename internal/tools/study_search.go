package tools

import (
	"context"

	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/trials"
)

// StudySearchTool searches clinicaltrials.gov
type StudySearchTool struct {
	client *trials.Client
}

// NewStudySearchTool creates a new study search tool
func NewStudySearchTool(client *trials.Client) *StudySearchTool {
	return &StudySearchTool{client: client}
}

// Name returns the tool name
func (t *StudySearchTool) Name() string {
	return "study_search"
}

// Description returns the tool description
func (t *StudySearchTool) Description() string {
	return "Searches for studies on clinicaltrials.gov, and returns a list of study names and IDs."
}

// Parameters returns the JSON schema for the tool parameters
func (t *StudySearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query_term": map[string]interface{}{
				"type":        "string",
				"description": "The search query. See the system message for operator usage for complex queries.",
			},
			"pageSize": map[string]interface{}{
				"type":        "integer",
				"description": "The number of results to return. Default 10, max 20.",
			},
		},
		"required": []string{"query_term"},
	}
}

// Execute runs the search. A non-200 answer is returned as a plain string
// carrying the status code so the model can rephrase.
func (t *StudySearchTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	query, err := stringArg(params, "query_term")
	if err != nil {
		return nil, err
	}
	pageSize, err := intArg(params, "pageSize", trials.DefaultPageSize)
	if err != nil {
		return nil, err
	}

	summary, err := t.client.Search(ctx, query, pageSize)
	if err != nil {
		if ue, ok := err.(*errors.UpstreamError); ok && ue.StatusCode != 0 {
			return trials.FailureMessage(ue), nil
		}
		return nil, err
	}
	return summary, nil
}
