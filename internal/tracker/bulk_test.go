package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// seedHierarchy builds a Sales Dashboard feature with one story and two
// tasks, plus an unrelated feature that must never be touched.
func seedHierarchy(fake *fakeService) (story, task1, task2 *fakeItem) {
	feature := fake.add("Feature", "Sales Dashboard", "New", 0)
	story = fake.add("User Story", "Build revenue chart", "New", feature.id)
	task1 = fake.add("Task", "Write DAX measure", "New", story.id)
	task2 = fake.add("Task", "Design report layout", "New", story.id)

	other := fake.add("Feature", "HR Portal", "New", 0)
	fake.add("User Story", "Employee onboarding", "New", other.id)
	return story, task1, task2
}

func TestBulkUpdateState_NoMatchingFeature(t *testing.T) {
	fake := newFakeService()
	client := newTestClient(t, fake)

	_, err := client.BulkUpdateState(context.Background(), "Ghost Feature", "Closed", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if fake.patchCalls != 0 {
		t.Errorf("%d mutations performed, want 0", fake.patchCalls)
	}
}

func TestBulkUpdateState_NoMatchingItems(t *testing.T) {
	fake := newFakeService()
	fake.add("Feature", "Empty Feature", "New", 0)
	client := newTestClient(t, fake)

	_, err := client.BulkUpdateState(context.Background(), "Empty Feature", "Closed", "")
	if !errors.Is(err, ErrNoMatchingItems) {
		t.Fatalf("err = %v, want ErrNoMatchingItems", err)
	}
	if fake.patchCalls != 0 {
		t.Errorf("%d mutations performed, want 0", fake.patchCalls)
	}
}

func TestBulkUpdateState_FilterLeavesNoMatches(t *testing.T) {
	fake := newFakeService()
	feature := fake.add("Feature", "Stories Only", "New", 0)
	fake.add("User Story", "Some story", "New", feature.id)
	client := newTestClient(t, fake)

	_, err := client.BulkUpdateState(context.Background(), "Stories Only", "Closed", "task")
	if !errors.Is(err, ErrNoMatchingItems) {
		t.Fatalf("err = %v, want ErrNoMatchingItems", err)
	}
	if fake.patchCalls != 0 {
		t.Errorf("%d mutations performed, want 0", fake.patchCalls)
	}
}

func TestBulkUpdateState_AllDescendants(t *testing.T) {
	fake := newFakeService()
	story, task1, task2 := seedHierarchy(fake)
	client := newTestClient(t, fake)

	result, err := client.BulkUpdateState(context.Background(), "Sales Dashboard", "Closed", "")
	if err != nil {
		t.Fatalf("BulkUpdateState failed: %v", err)
	}

	if result.Attempted != 3 || result.Succeeded != 3 || result.Failed != 0 {
		t.Errorf("attempted/succeeded/failed = %d/%d/%d, want 3/3/0",
			result.Attempted, result.Succeeded, result.Failed)
	}
	for _, it := range []*fakeItem{story, task1, task2} {
		if it.state != "Closed" {
			t.Errorf("item %d state = %q, want Closed", it.id, it.state)
		}
	}

	// Ascending identifier order.
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i-1].ID > result.Items[i].ID {
			t.Error("outcomes not in ascending identifier order")
		}
	}

	// The unrelated feature's story is untouched.
	for _, it := range fake.items {
		if it.title == "Employee onboarding" && it.state != "New" {
			t.Errorf("unrelated item was mutated to %q", it.state)
		}
	}
}

func TestBulkUpdateState_TypeFilterIsPermissive(t *testing.T) {
	fake := newFakeService()
	story, task1, task2 := seedHierarchy(fake)
	client := newTestClient(t, fake)

	// "story" must match the remote type name "User Story".
	result, err := client.BulkUpdateState(context.Background(), "Sales Dashboard", "Active", "story")
	if err != nil {
		t.Fatalf("BulkUpdateState failed: %v", err)
	}
	if result.Attempted != 1 || result.Succeeded != 1 {
		t.Errorf("attempted/succeeded = %d/%d, want 1/1", result.Attempted, result.Succeeded)
	}
	if story.state != "Active" {
		t.Errorf("story state = %q, want Active", story.state)
	}
	if task1.state != "New" || task2.state != "New" {
		t.Errorf("task states = %q/%q, want New/New", task1.state, task2.state)
	}
}

func TestBulkUpdateState_TaskFilter(t *testing.T) {
	fake := newFakeService()
	story, task1, task2 := seedHierarchy(fake)
	client := newTestClient(t, fake)

	result, err := client.BulkUpdateState(context.Background(), "Sales Dashboard", "Resolved", "Task")
	if err != nil {
		t.Fatalf("BulkUpdateState failed: %v", err)
	}
	if result.Attempted != 2 || result.Succeeded != 2 {
		t.Errorf("attempted/succeeded = %d/%d, want 2/2", result.Attempted, result.Succeeded)
	}
	if task1.state != "Resolved" || task2.state != "Resolved" {
		t.Errorf("task states = %q/%q, want Resolved/Resolved", task1.state, task2.state)
	}
	if story.state != "New" {
		t.Errorf("story state = %q, want New (left unchanged)", story.state)
	}
}

func TestBulkUpdateState_PartialFailureContinues(t *testing.T) {
	fake := newFakeService()
	story, task1, task2 := seedHierarchy(fake)
	fake.failUpdateIDs[task1.id] = true
	client := newTestClient(t, fake)

	result, err := client.BulkUpdateState(context.Background(), "Sales Dashboard", "Closed", "")
	if err != nil {
		t.Fatalf("BulkUpdateState failed: %v", err)
	}

	if result.Succeeded != 2 || result.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 2/1", result.Succeeded, result.Failed)
	}
	// Items after the failing one are still processed.
	if story.state != "Closed" || task2.state != "Closed" {
		t.Errorf("states = story %q, task2 %q; want Closed for both", story.state, task2.state)
	}
	var failed *ItemOutcome
	for i := range result.Items {
		if !result.Items[i].OK {
			failed = &result.Items[i]
		}
	}
	if failed == nil || failed.ID != task1.id {
		t.Fatalf("failed outcome = %+v, want item %d", failed, task1.id)
	}
	if failed.Err == "" {
		t.Error("failed outcome carries no error message")
	}
}

func TestBulkResult_Summary(t *testing.T) {
	result := &BulkResult{
		Feature:   "Sales Dashboard",
		State:     "Closed",
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Items: []ItemOutcome{
			{ID: 101, Title: "Build revenue chart", Type: TypeStory, OK: true},
			{ID: 102, Title: "Write DAX measure", Type: TypeTask, Err: "remote service returned 500"},
		},
	}

	s := result.Summary()
	if !strings.Contains(s, "1 of 2") {
		t.Errorf("summary %q missing success count", s)
	}
	if !strings.Contains(s, "1 failed") {
		t.Errorf("summary %q missing failure count", s)
	}
	if !strings.Contains(s, "#102") || !strings.Contains(s, "FAILED") {
		t.Errorf("summary %q missing per-item failure detail", s)
	}
}
