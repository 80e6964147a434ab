package codegen

import (
	"context"
	"fmt"
)

// StubService is a deterministic local Service that produces a placeholder
// implementation without calling any model backend.
type StubService struct{}

func (StubService) Name() string { return "stub" }

func (StubService) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if req.ExistingContent != "" {
		code := fmt.Sprintf("%s\n// %s: %s\n", req.ExistingContent, req.Role, req.TaskDescription)
		return Result{Code: code}, nil
	}
	code := fmt.Sprintf("// %s\n// %s: %s\n", req.FilePath, req.Role, req.TaskDescription)
	return Result{Code: code}, nil
}
