// Package toolbox implements the tools the task agents may invoke: tracker
// CRUD, requirements document generation, schema discovery, and project
// scaffolding. Tool schemas live here so each agent's loop offers the model
// only the descriptor's subset.
package toolbox

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// definitions maps tool name to schema.
var definitions = map[string]anthropic.ToolParam{
	"read_requirements": {
		Name:        "read_requirements",
		Description: anthropic.String("Read the requirements document from the workspace. Returns the full markdown plus the parsed requirement IDs."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"check_connection": {
		Name:        "check_connection",
		Description: anthropic.String("Verify access to the work-item tracking service."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"find_work_items": {
		Name:        "find_work_items",
		Description: anthropic.String("Search work items by type and title substring. Returns ID, title, and state for each match."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Work item type: Feature, Story, or Task",
				},
				"title_contains": map[string]interface{}{
					"type":        "string",
					"description": "Substring to match against titles (case-sensitive)",
				},
			},
			Required: []string{"type", "title_contains"},
		},
	},
	"create_feature": {
		Name:        "create_feature",
		Description: anthropic.String("Create a Feature work item."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Feature title",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Feature description",
				},
			},
			Required: []string{"title", "description"},
		},
	},
	"create_story": {
		Name:        "create_story",
		Description: anthropic.String("Create a User Story work item linked to a parent Feature."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "User Story title",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "User Story description",
				},
				"parent_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the parent Feature",
				},
			},
			Required: []string{"title", "description", "parent_id"},
		},
	},
	"create_task": {
		Name:        "create_task",
		Description: anthropic.String("Create a Task work item linked to a parent User Story."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Task title",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Task description",
				},
				"parent_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the parent User Story",
				},
			},
			Required: []string{"title", "description", "parent_id"},
		},
	},
	"bulk_update_state": {
		Name:        "bulk_update_state",
		Description: anthropic.String("Set the state of every Story and Task under a Feature. Best effort: per-item failures are reported but do not stop the rest."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"feature_title": map[string]interface{}{
					"type":        "string",
					"description": "Substring of the Feature title",
				},
				"state": map[string]interface{}{
					"type":        "string",
					"description": "Target state, e.g. Active, Resolved, Closed",
				},
				"type_filter": map[string]interface{}{
					"type":        "string",
					"description": "Optional type filter; 'story' or 'task' restricts the update to that type",
				},
			},
			Required: []string{"feature_title", "state"},
		},
	},
	"list_workspace": {
		Name:        "list_workspace",
		Description: anthropic.String("List the files in the workspace directory."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"read_sow_and_rules": {
		Name:        "read_sow_and_rules",
		Description: anthropic.String("Read the Statement of Work and the rules document from the workspace."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"save_requirements": {
		Name:        "save_requirements",
		Description: anthropic.String("Save the generated requirements markdown to the workspace, replacing any previous version."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The full requirements document content",
				},
			},
			Required: []string{"content"},
		},
	},
	"analyze_requirements": {
		Name:        "analyze_requirements",
		Description: anthropic.String("Summarize what the requirements document implies for the Power BI project."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"discover_schema": {
		Name:        "discover_schema",
		Description: anthropic.String("Discover the source database's base tables and snapshot them for the project generator."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"scaffold_project": {
		Name:        "scaffold_project",
		Description: anthropic.String("Create the PBIP project folder structure and descriptor files."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
	"render_model": {
		Name:        "render_model",
		Description: anthropic.String("Write the TMDL semantic model files from the discovered schema. Run scaffold_project first."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{},
		},
	},
}

// Definitions returns the schemas for the named tools, preserving order.
// Unknown names are skipped.
func (e *Executor) Definitions(names []string) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		def, ok := definitions[name]
		if !ok {
			continue
		}
		d := def
		out = append(out, anthropic.ToolUnionParam{OfTool: &d})
	}
	return out
}
