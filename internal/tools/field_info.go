package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/trialchat/internal/trials"
)

// FieldInfoTool looks up one field of one or more studies
type FieldInfoTool struct {
	client *trials.Client
}

// NewFieldInfoTool creates a new field info tool
func NewFieldInfoTool(client *trials.Client) *FieldInfoTool {
	return &FieldInfoTool{client: client}
}

// Name returns the tool name
func (t *FieldInfoTool) Name() string {
	return "get_field_info"
}

// Description returns the tool description
func (t *FieldInfoTool) Description() string {
	return "Get a specific field's information for a study given its NCT_ID and field of interest. NCT_IDs are formatted like NCT00000000."
}

// Parameters returns the JSON schema for the tool parameters
func (t *FieldInfoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"nct_ids": map[string]interface{}{
				"type":        "string",
				"description": "The NCT_IDs of the study to get information for, separated by commas: 'NCT00000000,NCT00000001,NCT00000002'",
			},
			"field": map[string]interface{}{
				"type": "string",
				"description": fmt.Sprintf("The field to get information for. Available arguments: %s. Note, if interventionAlone does not contain the intervention you are looking for, try studyArmsInterventions.",
					strings.Join(trials.FieldNames(), ", ")),
			},
		},
		"required": []string{"nct_ids", "field"},
	}
}

// Execute fetches the field for every identifier
func (t *FieldInfoTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	ids, err := stringArg(params, "nct_ids")
	if err != nil {
		return nil, err
	}
	field, err := stringArg(params, "field")
	if err != nil {
		return nil, err
	}
	return t.client.GetFieldInfo(ctx, ids, field), nil
}
