package fanout

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestAll_IndexAligned(t *testing.T) {
	tasks := []func(context.Context) (int, error){
		func(context.Context) (int, error) { return 10, nil },
		func(context.Context) (int, error) { return 0, fmt.Errorf("boom") },
		func(context.Context) (int, error) { return 30, nil },
	}

	results := All(context.Background(), tasks)
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	if results[0].Value != 10 || results[0].Err != nil {
		t.Fatalf("branch 0: %+v", results[0])
	}
	if results[1].Err == nil {
		t.Fatalf("branch 1 should carry its error: %+v", results[1])
	}
	if results[2].Value != 30 || results[2].Err != nil {
		t.Fatalf("branch 2: %+v", results[2])
	}
}

func TestAll_FailureDoesNotCancelSiblings(t *testing.T) {
	tasks := []func(context.Context) (string, error){
		func(context.Context) (string, error) { return "", fmt.Errorf("fast failure") },
		func(ctx context.Context) (string, error) {
			select {
			case <-time.After(50 * time.Millisecond):
				return "slow success", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	}

	results := All(context.Background(), tasks)
	if results[1].Err != nil {
		t.Fatalf("sibling canceled by failed branch: %v", results[1].Err)
	}
	if results[1].Value != "slow success" {
		t.Fatalf("unexpected value: %q", results[1].Value)
	}
}

func TestAll_Empty(t *testing.T) {
	results := All[string](context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("want no results, got %d", len(results))
	}
}
