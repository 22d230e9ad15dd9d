package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const apiVersion = "7.0"

// DefaultBaseURL is the hosted service endpoint. Tests point BaseURL at an
// httptest server instead.
const DefaultBaseURL = "https://dev.azure.com"

// Config holds the connection settings for a Client. Organization, Project,
// and PAT are required.
type Config struct {
	BaseURL      string
	Organization string
	Project      string
	// PAT is the personal access token, sent as the password of a Basic
	// credential with an empty username.
	PAT string
	// Timeout bounds each individual remote call. Defaults to 30s.
	Timeout    time.Duration
	Logger     zerolog.Logger
	HTTPClient *http.Client
}

// Client issues requests against the remote work-item service. All
// operations are synchronous and non-retrying; a transient network failure
// surfaces to the caller as an error with no automatic retry.
type Client struct {
	base    string
	org     string
	project string
	pat     string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Organization == "" {
		return nil, fmt.Errorf("tracker: organization is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("tracker: project is required")
	}
	if cfg.PAT == "" {
		return nil, fmt.Errorf("tracker: personal access token is required")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		base:    base,
		org:     cfg.Organization,
		project: cfg.Project,
		pat:     cfg.PAT,
		http:    hc,
		log:     cfg.Logger,
	}, nil
}

// CheckConnection verifies the credential by fetching project metadata.
func (c *Client) CheckConnection(ctx context.Context) error {
	u := fmt.Sprintf("%s/%s/_apis/projects/%s?api-version=%s",
		c.base, c.org, url.PathEscape(c.project), apiVersion)
	_, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return fmt.Errorf("checking connection: %w", err)
	}
	return nil
}

// FindByTitle returns all work items of the given type whose title contains
// substring. Matching is the service's CONTAINS predicate (case-sensitive),
// results are ordered by ascending identifier. An empty result is not an
// error.
func (c *Client) FindByTitle(ctx context.Context, t WorkItemType, substring string) ([]WorkItem, error) {
	ids, err := c.queryIDs(ctx, t, substring)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.getByIDs(ctx, ids)
}

// Get fetches a single work item. Returns ErrNotFound if it does not exist.
func (c *Client) Get(ctx context.Context, id int) (WorkItem, error) {
	items, err := c.getByIDs(ctx, []int{id})
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return WorkItem{}, fmt.Errorf("work item %d: %w", id, ErrNotFound)
		}
		return WorkItem{}, err
	}
	if len(items) == 0 {
		return WorkItem{}, fmt.Errorf("work item %d: %w", id, ErrNotFound)
	}
	return items[0], nil
}

// Create creates a work item. For Stories and Tasks the parent link is part
// of the same patch document as the field writes, so creation and linking are
// atomic at the service. The parent is verified first: a missing or
// wrong-typed parent fails with ErrNotFound before anything is created. If
// the service ever returns a created item without the requested link, the
// orphan is deleted and the create reported as failed.
func (c *Client) Create(ctx context.Context, req CreateRequest) (WorkItem, error) {
	if req.Title == "" {
		return WorkItem{}, fmt.Errorf("tracker: title is required")
	}

	parentType, needsParent := req.Type.ParentType()
	if needsParent {
		if req.ParentID == 0 {
			return WorkItem{}, fmt.Errorf("tracker: %s requires a parent %s", req.Type, parentType)
		}
		parent, err := c.Get(ctx, req.ParentID)
		if err != nil {
			return WorkItem{}, fmt.Errorf("resolving parent: %w", err)
		}
		if parent.Type != parentType {
			return WorkItem{}, fmt.Errorf("parent %d is a %s, want %s: %w",
				req.ParentID, parent.Type, parentType, ErrNotFound)
		}
	} else if req.ParentID != 0 {
		return WorkItem{}, fmt.Errorf("tracker: %s cannot have a parent", req.Type)
	}

	ops := []patchOp{
		{Op: "add", Path: "/fields/System.Title", Value: req.Title},
		{Op: "add", Path: "/fields/System.Description", Value: req.Description},
	}
	if len(req.Tags) > 0 {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/System.Tags", Value: strings.Join(req.Tags, "; ")})
	}
	if req.ParentID != 0 {
		ops = append(ops, patchOp{
			Op:   "add",
			Path: "/relations/-",
			Value: map[string]string{
				"rel": relParent,
				"url": c.itemRef(req.ParentID),
			},
		})
	}

	body, err := json.Marshal(ops)
	if err != nil {
		return WorkItem{}, fmt.Errorf("encoding patch document: %w", err)
	}

	u := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems/$%s?api-version=%s",
		c.base, c.org, url.PathEscape(c.project), url.PathEscape(string(req.Type)), apiVersion)

	resp, err := c.do(ctx, http.MethodPost, u, contentTypePatch, body)
	if err != nil {
		return WorkItem{}, fmt.Errorf("creating %s: %w", req.Type, err)
	}

	item, err := decodeItem(resp, "create")
	if err != nil {
		return WorkItem{}, err
	}

	if req.ParentID != 0 && item.ParentID != req.ParentID {
		// The service created the item without the requested link. Remove
		// the orphan so a failed create leaves nothing behind.
		if delErr := c.deleteItem(ctx, item.ID); delErr != nil {
			c.log.Error().Int("id", item.ID).Err(delErr).Msg("failed to delete orphaned work item")
		}
		return WorkItem{}, fmt.Errorf("creating %s: parent link to %d was not established", req.Type, req.ParentID)
	}

	c.log.Debug().Int("id", item.ID).Str("type", string(item.Type)).Str("title", item.Title).Msg("created work item")
	return item, nil
}

// UpdateState overwrites the state field of a work item. Any string is
// accepted and forwarded; no state-transition graph is enforced here.
func (c *Client) UpdateState(ctx context.Context, id int, state string) (WorkItem, error) {
	ops := []patchOp{{Op: "add", Path: "/fields/System.State", Value: state}}
	body, err := json.Marshal(ops)
	if err != nil {
		return WorkItem{}, fmt.Errorf("encoding patch document: %w", err)
	}

	u := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems/%d?api-version=%s",
		c.base, c.org, url.PathEscape(c.project), id, apiVersion)

	resp, err := c.do(ctx, http.MethodPatch, u, contentTypePatch, body)
	if err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			return WorkItem{}, fmt.Errorf("work item %d: %w", id, ErrNotFound)
		}
		return WorkItem{}, fmt.Errorf("updating state of %d: %w", id, err)
	}

	item, err := decodeItem(resp, "update")
	if err != nil {
		return WorkItem{}, err
	}
	c.log.Debug().Int("id", id).Str("state", state).Msg("updated work item state")
	return item, nil
}

// Descendants resolves a Feature whose title contains featureTitle and
// returns every Story and Task transitively linked below it, in ascending
// identifier order. The Feature itself is excluded. Returns ErrNotFound when
// no Feature matches.
func (c *Client) Descendants(ctx context.Context, featureTitle string) ([]WorkItem, error) {
	featureIDs, err := c.queryIDs(ctx, TypeFeature, featureTitle)
	if err != nil {
		return nil, err
	}
	if len(featureIDs) == 0 {
		return nil, fmt.Errorf("feature matching %q: %w", featureTitle, ErrNotFound)
	}

	// The query orders by identifier, so the first match is the oldest
	// feature with that title.
	seen := map[int]bool{featureIDs[0]: true}
	frontier := []int{featureIDs[0]}
	var descendants []int

	for len(frontier) > 0 {
		items, err := c.getByIDs(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, it := range items {
			for _, child := range it.childIDs {
				if seen[child] {
					continue
				}
				seen[child] = true
				descendants = append(descendants, child)
				frontier = append(frontier, child)
			}
		}
	}

	if len(descendants) == 0 {
		return nil, nil
	}
	sort.Ints(descendants)
	return c.getByIDs(ctx, descendants)
}

// relParent is the relation from a child to its parent; relChild is the
// forward direction used to walk down the hierarchy.
const (
	relParent = "System.LinkTypes.Hierarchy-Reverse"
	relChild  = "System.LinkTypes.Hierarchy-Forward"
)

const contentTypePatch = "application/json-patch+json"

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// queryIDs runs a query-by-language request and returns the matching
// identifiers in ascending order.
func (c *Client) queryIDs(ctx context.Context, t WorkItemType, titleSubstring string) ([]int, error) {
	wiql := fmt.Sprintf(
		"SELECT [System.Id], [System.Title], [System.State] FROM WorkItems"+
			" WHERE [System.WorkItemType] = '%s' AND [System.Title] CONTAINS '%s'"+
			" ORDER BY [System.Id]",
		escapeWIQL(string(t)), escapeWIQL(titleSubstring))

	body, err := json.Marshal(map[string]string{"query": wiql})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	u := fmt.Sprintf("%s/%s/%s/_apis/wit/wiql?api-version=%s",
		c.base, c.org, url.PathEscape(c.project), apiVersion)

	resp, err := c.do(ctx, http.MethodPost, u, "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("querying work items: %w", err)
	}

	var result struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &ParseError{Op: "query", Err: err}
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, wi := range result.WorkItems {
		ids = append(ids, wi.ID)
	}
	return ids, nil
}

// getByIDs fetches work items in a single batch request, relations included.
func (c *Client) getByIDs(ctx context.Context, ids []int) ([]WorkItem, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	u := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems?ids=%s&$expand=relations&api-version=%s",
		c.base, c.org, url.PathEscape(c.project), strings.Join(parts, ","), apiVersion)

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching work items: %w", err)
	}

	var result struct {
		Value []wireItem `json:"value"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &ParseError{Op: "batch get", Err: err}
	}

	items := make([]WorkItem, 0, len(result.Value))
	for _, w := range result.Value {
		items = append(items, w.toWorkItem())
	}
	return items, nil
}

func (c *Client) deleteItem(ctx context.Context, id int) error {
	u := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems/%d?api-version=%s",
		c.base, c.org, url.PathEscape(c.project), id, apiVersion)
	_, err := c.do(ctx, http.MethodDelete, u, "", nil)
	return err
}

// itemRef builds the canonical URL of a work item for use in relation links.
func (c *Client) itemRef(id int) string {
	return fmt.Sprintf("%s/%s/%s/_apis/wit/workItems/%d",
		c.base, c.org, url.PathEscape(c.project), id)
}

// do issues a request with the Basic credential and returns the response
// body. Any status other than 200 is a RemoteError.
func (c *Client) do(ctx context.Context, method, u, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth("", c.pat)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// escapeWIQL doubles single quotes inside a string literal.
func escapeWIQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type wireItem struct {
	ID        int            `json:"id"`
	Fields    map[string]any `json:"fields"`
	Relations []struct {
		Rel string `json:"rel"`
		URL string `json:"url"`
	} `json:"relations"`
}

func (w wireItem) toWorkItem() WorkItem {
	item := WorkItem{
		ID:          w.ID,
		Type:        WorkItemType(w.fieldString("System.WorkItemType")),
		Title:       w.fieldString("System.Title"),
		Description: w.fieldString("System.Description"),
		State:       w.fieldString("System.State"),
	}
	if tags := w.fieldString("System.Tags"); tags != "" {
		for _, t := range strings.Split(tags, ";") {
			if t = strings.TrimSpace(t); t != "" {
				item.Tags = append(item.Tags, t)
			}
		}
	}
	for _, rel := range w.Relations {
		id, ok := trailingID(rel.URL)
		if !ok {
			continue
		}
		switch rel.Rel {
		case relParent:
			item.ParentID = id
		case relChild:
			item.childIDs = append(item.childIDs, id)
		}
	}
	return item
}

func (w wireItem) fieldString(name string) string {
	s, _ := w.Fields[name].(string)
	return s
}

// trailingID extracts the numeric identifier from the last path segment of a
// relation URL.
func trailingID(u string) (int, bool) {
	idx := strings.LastIndex(u, "/")
	if idx < 0 || idx == len(u)-1 {
		return 0, false
	}
	id, err := strconv.Atoi(u[idx+1:])
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeItem parses a single work-item response body.
func decodeItem(data []byte, op string) (WorkItem, error) {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return WorkItem{}, &ParseError{Op: op, Err: err}
	}
	if w.ID == 0 {
		return WorkItem{}, &ParseError{Op: op, Err: fmt.Errorf("response missing work item id")}
	}
	return w.toWorkItem(), nil
}
