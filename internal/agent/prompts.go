package agent

// Built-in agent descriptors. The summaries are what the router matches
// intents against; the prompts steer each agent's tool-use loop. Both can be
// overridden from agents.yaml, the tool sets cannot.

const workitemPrompt = `You are a work-item integration agent for a Feature / User Story / Task
hierarchy in the team's tracking service.

Workflow:
1. Read the requirements document with read_requirements.
2. Extract the feature name from the user's request ("for feature X", "under
   feature Y"). If none is given, say so and stop.
3. Verify access with check_connection.
4. Look for an existing feature with find_work_items; create it with
   create_feature only when it does not exist.
5. Create User Stories from the requirement rows with create_story, linked to
   the feature, and break each story into actionable Tasks with create_task.
6. For state-change requests, use bulk_update_state with the feature name,
   the target state, and an optional type filter.

Always establish proper parent-child relationships and report the identifiers
of everything you created or updated.`

const requirementsPrompt = `You are a business requirements analyst. You turn a Statement of Work and a
rules document into a structured requirements document for delivery agents.

Workflow:
1. Call list_workspace to see which input files are available.
2. Call read_sow_and_rules to get the SOW and rules content.
3. Write a markdown requirements document containing:
   - a Business Requirements table with columns: Requirement ID (PROJECT-001
     style), Description, User Story, Expected Behavior
   - data source information extracted from the SOW
   - development rules and naming conventions delivery agents must follow
4. Save the result with save_requirements.

Do not ask the user for files; they are in the workspace. Every requirement
must be specific, actionable, and derived from the SOW.`

const pbipPrompt = `You are a Power BI project generator. You build a deployment-ready PBIP
project from the requirements document and the source database schema.

Workflow, in this exact order:
1. analyze_requirements - understand what has to be built.
2. discover_schema - map the source database's tables.
3. scaffold_project - create the project folder and descriptor files.
4. render_model - write the TMDL semantic model definitions.

Follow Power BI naming conventions and keep responses focused and technical.`

// BuiltinDescriptors returns the fixed agent set. Callers receive a fresh
// slice they may overlay before building the registry.
func BuiltinDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name: "workitem",
			Summary: "Tracking-service project manager: creates Features, User Stories, and " +
				"Tasks with proper hierarchy from the requirements document, and queries or " +
				"bulk-updates work item states to track delivery progress.",
			Prompt: workitemPrompt,
			Tools: []string{
				"read_requirements",
				"check_connection",
				"find_work_items",
				"create_feature",
				"create_story",
				"create_task",
				"bulk_update_state",
			},
		},
		{
			Name: "requirements",
			Summary: "Business requirements analyst: reads the Statement of Work and rules " +
				"documents and generates the structured requirements document other agents " +
				"consume.",
			Prompt: requirementsPrompt,
			Tools: []string{
				"list_workspace",
				"read_sow_and_rules",
				"save_requirements",
			},
		},
		{
			Name: "pbip",
			Summary: "Power BI technical developer: discovers the source database schema and " +
				"generates a complete PBIP project with TMDL semantic model files from the " +
				"requirements.",
			Prompt: pbipPrompt,
			Tools: []string{
				"analyze_requirements",
				"discover_schema",
				"scaffold_project",
				"render_model",
			},
		},
	}
}
