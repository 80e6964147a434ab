package codegen

import (
	"context"
	"strings"
	"testing"
)

func TestStubService_Name(t *testing.T) {
	var s StubService
	if got := s.Name(); got != "stub" {
		t.Errorf("Name(): got %q, want stub", got)
	}
}

func TestStubService_Generate_newFile(t *testing.T) {
	var s StubService
	res, err := s.Generate(context.Background(), Request{
		Role:            "backend",
		FilePath:        "src/api/users.go",
		TaskDescription: "add user lookup endpoint",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(res.Code, "src/api/users.go") || !strings.Contains(res.Code, "backend") {
		t.Errorf("Code = %q", res.Code)
	}
}

func TestStubService_Generate_appendsToExisting(t *testing.T) {
	var s StubService
	res, err := s.Generate(context.Background(), Request{
		Role:            "frontend",
		FilePath:        "src/app.js",
		TaskDescription: "wire new route",
		ExistingContent: "const app = {}",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(res.Code, "const app = {}") {
		t.Errorf("existing content not preserved: %q", res.Code)
	}
}

func TestStubService_Generate_cancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var s StubService
	if _, err := s.Generate(ctx, Request{Role: "backend", FilePath: "x.go"}); err == nil {
		t.Fatal("expected context error")
	}
}
