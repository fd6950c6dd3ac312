package domain

// StructuredRequest is a single prompt whose answer must decode into a typed value.
// Name identifies the target shape to the provider and must match [a-zA-Z0-9_-]+.
type StructuredRequest struct {
	Name   string
	Prompt string
}
