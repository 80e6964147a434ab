// Package codegen defines the port to the model backend that produces code
// for an agent task. The coordinator never calls a model directly; it hands a
// request to a Service and receives generated content back.
package codegen

import "context"

// Request describes one generation unit: the role doing the work, the target
// file, and what the task needs. ExistingContent is empty for new files.
type Request struct {
	Role            string
	Model           string
	FilePath        string
	TaskDescription string
	ExistingContent string
}

// Result is the generated file content.
type Result struct {
	Code string
}

// Service produces code for agent tasks.
type Service interface {
	Name() string
	Generate(ctx context.Context, req Request) (Result, error)
}
