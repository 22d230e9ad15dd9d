package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/agent"
	"github.com/tmcgann/fabworks/internal/artifact"
	"github.com/tmcgann/fabworks/internal/pbip"
	"github.com/tmcgann/fabworks/internal/schema"
	"github.com/tmcgann/fabworks/internal/tracker"
)

// TrackerClient is the subset of tracker operations the tools need.
type TrackerClient interface {
	CheckConnection(ctx context.Context) error
	FindByTitle(ctx context.Context, t tracker.WorkItemType, substring string) ([]tracker.WorkItem, error)
	Create(ctx context.Context, req tracker.CreateRequest) (tracker.WorkItem, error)
	BulkUpdateState(ctx context.Context, featureTitle, newState, typeFilter string) (*tracker.BulkResult, error)
}

// Workspace holds the filesystem layout the file-oriented tools operate on.
type Workspace struct {
	// Dir is the workspace root listed by list_workspace.
	Dir       string
	SOWPath   string
	RulesPath string
	// SnapshotPath is where discover_schema writes discovered_schema.json.
	SnapshotPath string
	// ProjectDir and ProjectName locate the generated PBIP project.
	ProjectDir  string
	ProjectName string
	// ServerName and DatabaseName parameterize the generated data source
	// expressions.
	ServerName   string
	DatabaseName string
}

// defaultTags are applied to every created work item.
var defaultTags = []string{"PowerBI", "Fabric", "Generated"}

// Executor dispatches tool calls to the underlying clients. Structured
// errors from those clients are flattened to operator-readable text here, at
// the tool boundary, so the model and the transcript see plain prose while
// library callers keep errors.Is/As.
type Executor struct {
	tracker    TrackerClient
	store      *artifact.Store
	discoverer *schema.Discoverer
	ws         Workspace
	log        zerolog.Logger
}

var _ agent.Toolbox = (*Executor)(nil)

// Config wires an Executor.
type Config struct {
	Tracker TrackerClient
	Store   *artifact.Store
	// Discoverer may be nil when no schema source is configured; the
	// discover_schema tool then reports the missing configuration.
	Discoverer *schema.Discoverer
	Workspace  Workspace
	Logger     zerolog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg Config) *Executor {
	return &Executor{
		tracker:    cfg.Tracker,
		store:      cfg.Store,
		discoverer: cfg.Discoverer,
		ws:         cfg.Workspace,
		log:        cfg.Logger,
	}
}

// Execute runs a tool by name with the given JSON input.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) agent.ToolResult {
	switch name {
	case "read_requirements":
		return e.readRequirements()
	case "check_connection":
		return e.checkConnection(ctx)
	case "find_work_items":
		return e.findWorkItems(ctx, input)
	case "create_feature":
		return e.createItem(ctx, input, tracker.TypeFeature)
	case "create_story":
		return e.createItem(ctx, input, tracker.TypeStory)
	case "create_task":
		return e.createItem(ctx, input, tracker.TypeTask)
	case "bulk_update_state":
		return e.bulkUpdateState(ctx, input)
	case "list_workspace":
		return e.listWorkspace()
	case "read_sow_and_rules":
		return e.readSOWAndRules()
	case "save_requirements":
		return e.saveRequirements(input)
	case "analyze_requirements":
		return e.analyzeRequirements()
	case "discover_schema":
		return e.discoverSchema(ctx)
	case "scaffold_project":
		return e.scaffoldProject()
	case "render_model":
		return e.renderModel()
	default:
		return errResult("unknown tool: %s", name)
	}
}

func errResult(format string, args ...any) agent.ToolResult {
	return agent.ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

func okResult(format string, args ...any) agent.ToolResult {
	return agent.ToolResult{Content: fmt.Sprintf(format, args...)}
}

func (e *Executor) readRequirements() agent.ToolResult {
	doc, err := e.store.Load()
	if err != nil {
		return errResult("requirements document not available: %v", err)
	}
	return okResult("Requirements document loaded (%s).\n\n%s", doc.Summary(), doc.Raw)
}

func (e *Executor) checkConnection(ctx context.Context) agent.ToolResult {
	if err := e.tracker.CheckConnection(ctx); err != nil {
		return errResult("tracker connection failed: %v", err)
	}
	return okResult("Tracker connection verified.")
}

func (e *Executor) findWorkItems(ctx context.Context, input json.RawMessage) agent.ToolResult {
	var params struct {
		Type          string `json:"type"`
		TitleContains string `json:"title_contains"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	itemType, err := tracker.ParseWorkItemType(params.Type)
	if err != nil {
		return errResult("%v", err)
	}

	items, err := e.tracker.FindByTitle(ctx, itemType, params.TitleContains)
	if err != nil {
		return errResult("searching work items: %v", err)
	}
	if len(items) == 0 {
		return okResult("No %s found with title containing %q.", itemType, params.TitleContains)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matching %s items:\n", len(items), itemType)
	for _, it := range items {
		fmt.Fprintf(&b, "- ID %d | %s | state %s\n", it.ID, it.Title, it.State)
	}
	return agent.ToolResult{Content: b.String()}
}

func (e *Executor) createItem(ctx context.Context, input json.RawMessage, itemType tracker.WorkItemType) agent.ToolResult {
	var params struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ParentID    int    `json:"parent_id"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	item, err := e.tracker.Create(ctx, tracker.CreateRequest{
		Type:        itemType,
		Title:       params.Title,
		Description: params.Description,
		Tags:        defaultTags,
		ParentID:    params.ParentID,
	})
	if err != nil {
		return errResult("creating %s: %v", itemType, err)
	}
	if item.ParentID != 0 {
		return okResult("%s created: ID %d, title %q, parent %d.", itemType, item.ID, item.Title, item.ParentID)
	}
	return okResult("%s created: ID %d, title %q.", itemType, item.ID, item.Title)
}

func (e *Executor) bulkUpdateState(ctx context.Context, input json.RawMessage) agent.ToolResult {
	var params struct {
		FeatureTitle string `json:"feature_title"`
		State        string `json:"state"`
		TypeFilter   string `json:"type_filter"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}

	result, err := e.tracker.BulkUpdateState(ctx, params.FeatureTitle, params.State, params.TypeFilter)
	if err != nil {
		return errResult("bulk state update: %v", err)
	}
	return agent.ToolResult{Content: result.Summary()}
}

func (e *Executor) listWorkspace() agent.ToolResult {
	entries, err := os.ReadDir(e.ws.Dir)
	if err != nil {
		return errResult("listing workspace: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return okResult("Workspace %s:\n%s", e.ws.Dir, strings.Join(names, "\n"))
}

func (e *Executor) readSOWAndRules() agent.ToolResult {
	sow, err := os.ReadFile(e.ws.SOWPath)
	if err != nil {
		return errResult("statement of work not found at %s: %v", e.ws.SOWPath, err)
	}
	rules, err := os.ReadFile(e.ws.RulesPath)
	if err != nil {
		return errResult("rules document not found at %s: %v", e.ws.RulesPath, err)
	}
	return okResult("SOW CONTENT:\n%s\n\nRULES CONTENT:\n%s", sow, rules)
}

func (e *Executor) saveRequirements(input json.RawMessage) agent.ToolResult {
	var params struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errResult("invalid parameters: %v", err)
	}
	if strings.TrimSpace(params.Content) == "" {
		return errResult("requirements content is empty")
	}

	doc, err := e.store.Save(params.Content)
	if err != nil {
		return errResult("saving requirements: %v", err)
	}
	return okResult("Requirements saved to %s (%s).", e.store.Path(), doc.Summary())
}

func (e *Executor) analyzeRequirements() agent.ToolResult {
	doc := e.store.Current()
	if doc == nil {
		if loaded, err := e.store.Load(); err == nil {
			doc = loaded
		}
	}
	return agent.ToolResult{Content: pbip.AnalyzeRequirements(doc)}
}

func (e *Executor) discoverSchema(ctx context.Context) agent.ToolResult {
	if e.discoverer == nil {
		return errResult("schema source is not configured; set schema.dsn in the configuration")
	}
	snap, err := e.discoverer.Discover(ctx)
	if err != nil {
		return errResult("schema discovery failed: %v", err)
	}
	if err := snap.WriteFile(e.ws.SnapshotPath); err != nil {
		return errResult("%v", err)
	}
	return okResult("Schema discovery found %d tables: %s\nSnapshot written to %s.",
		len(snap.Tables), strings.Join(snap.Tables, ", "), e.ws.SnapshotPath)
}

func (e *Executor) project(tables []string) *pbip.Project {
	return &pbip.Project{
		Name:         e.ws.ProjectName,
		OutDir:       e.ws.ProjectDir,
		ServerName:   e.ws.ServerName,
		DatabaseName: e.ws.DatabaseName,
		Tables:       tables,
		Log:          e.log,
	}
}

func (e *Executor) scaffoldProject() agent.ToolResult {
	files, err := e.project(nil).Scaffold()
	if err != nil {
		return errResult("scaffolding project: %v", err)
	}
	return okResult("Project structure created under %s (%d descriptor files).", e.ws.ProjectDir, len(files))
}

func (e *Executor) renderModel() agent.ToolResult {
	snap, err := schema.ReadSnapshot(e.ws.SnapshotPath)
	if err != nil {
		return errResult("schema snapshot not available, run discover_schema first: %v", err)
	}

	files, err := e.project(snap.Tables).RenderTMDL()
	if err != nil {
		return errResult("rendering model: %v", err)
	}
	return okResult("Semantic model rendered: %d TMDL files for %d tables.", len(files), len(snap.Tables))
}
