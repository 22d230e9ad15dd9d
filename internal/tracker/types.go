// Package tracker is the client for the remote hierarchical work-item
// service. Work items form a three-level Feature -> User Story -> Task
// hierarchy linked by parent-child relations; the client exposes query,
// create, and state-update operations plus a bulk state-transition
// orchestrator over a feature's descendants.
package tracker

import (
	"fmt"
	"strings"
)

// WorkItemType identifies a level of the work-item hierarchy. The values are
// the remote service's type names and appear verbatim in query predicates and
// creation paths.
type WorkItemType string

const (
	TypeFeature WorkItemType = "Feature"
	TypeStory   WorkItemType = "User Story"
	TypeTask    WorkItemType = "Task"
)

// ParentType returns the work-item type one level above t in the hierarchy.
// Features have no parent.
func (t WorkItemType) ParentType() (WorkItemType, bool) {
	switch t {
	case TypeStory:
		return TypeFeature, true
	case TypeTask:
		return TypeStory, true
	default:
		return "", false
	}
}

// ParseWorkItemType resolves a user-supplied type name. Matching is
// case-insensitive and accepts "story" for "User Story".
func ParseWorkItemType(s string) (WorkItemType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feature":
		return TypeFeature, nil
	case "story", "user story":
		return TypeStory, nil
	case "task":
		return TypeTask, nil
	default:
		return "", fmt.Errorf("unknown work item type %q", s)
	}
}

// WorkItem is the normalized view of a remote work item. ParentID is zero for
// Features and for items whose parent link is not present in the response.
type WorkItem struct {
	ID          int
	Type        WorkItemType
	Title       string
	Description string
	State       string
	Tags        []string
	ParentID    int

	// childIDs holds the forward hierarchy links from the fetched
	// relations. Used internally to walk a feature's descendants.
	childIDs []int
}

// CreateRequest describes a work item to create. ParentID must be zero for
// Features and must reference an existing item of the type one level above
// for Stories and Tasks; the parent link is established in the same remote
// call as the creation.
type CreateRequest struct {
	Type        WorkItemType
	Title       string
	Description string
	Tags        []string
	ParentID    int
}
