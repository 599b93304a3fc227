package logging

import (
	"context"
	"testing"
)

func TestWithItem(t *testing.T) {
	ctx := WithItem(context.Background(), 42)

	if got := GetItem(ctx); got != 42 {
		t.Errorf("GetItem() = %d, want 42", got)
	}
}

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "r-17436921")

	if got := GetRunID(ctx); got != "r-17436921" {
		t.Errorf("GetRunID() = %q, want %q", got, "r-17436921")
	}
}

func TestGetItem_NotPresent(t *testing.T) {
	if got := GetItem(context.Background()); got != 0 {
		t.Errorf("GetItem() = %d, want 0", got)
	}
}

func TestGetRunID_NotPresent(t *testing.T) {
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID() = %q, want empty string", got)
	}
}

func TestBothValues(t *testing.T) {
	ctx := WithItem(context.Background(), 7)
	ctx = WithRunID(ctx, "r-1")

	if got := GetItem(ctx); got != 7 {
		t.Errorf("GetItem() = %d, want 7", got)
	}
	if got := GetRunID(ctx); got != "r-1" {
		t.Errorf("GetRunID() = %q, want %q", got, "r-1")
	}
}
