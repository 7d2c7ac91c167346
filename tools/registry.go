// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are declared as data in AllTools and bound to lookup service methods
// through type-safe handlers.
package tools

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a lookup service method with matching Args/Result types.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "snusbase_search")
	Name string

	// Method is the service method name (e.g., "Search")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (search, tools)
	Category string

	// ReadOnly indicates the tool doesn't modify remote state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// ToolsByCategory returns the tools in the given category, in declaration order
func ToolsByCategory(category string) []ToolSpec {
	var result []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			result = append(result, spec)
		}
	}
	return result
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}
