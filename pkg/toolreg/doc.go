// Package toolreg resolves tool names to handlers and invokes them.
//
// Invariants:
// - The tool collection is fixed at construction.
// - Lookup is a linear scan resolving to the first matching name.
// - Handler errors propagate to the caller unchanged.
//
// Usage:
//
//	reg, _ := toolreg.New([]toolreg.Definition{{
//		Name:    "market_summary",
//		Handler: summarize,
//	}}, logger)
//	out, err := reg.UseTool(ctx, "market_summary", `{"zip":"94110"}`)
package toolreg
