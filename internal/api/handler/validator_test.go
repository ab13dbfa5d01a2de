package handler

import (
	"strings"
	"testing"

	"github.com/openstudy/course-api/internal/core/ports"
)

func TestValidator_CourseInput(t *testing.T) {
	v := NewValidator()

	ok := ports.CourseInput{Title: "Go", Description: "d", Duration: "4w", Outcome: "o"}
	if err := v.Validate(&ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blank := ok
	blank.Title = "   "
	err := v.Validate(&blank)
	if err == nil || !strings.Contains(err.Error(), "title must not be blank") {
		t.Fatalf("expected blank title error, got %v", err)
	}

	missing := ports.CourseInput{}
	err = v.Validate(&missing)
	if err == nil || !strings.Contains(err.Error(), "outcome is required") {
		t.Fatalf("expected required errors, got %v", err)
	}
}

func TestValidator_RegisterInput(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(&ports.RegisterInput{Username: "alice", Password: "secret1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Validate(&ports.RegisterInput{Username: "alice", Password: "secret1", Role: "ROOT"}); err == nil || !strings.Contains(err.Error(), "role must be one of") {
		t.Fatalf("expected role error, got %v", err)
	}
	if err := v.Validate(&ports.RegisterInput{Username: "al", Password: "secret1"}); err == nil || !strings.Contains(err.Error(), "username must be at least 3") {
		t.Fatalf("expected length error, got %v", err)
	}
}
