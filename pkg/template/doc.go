// Package template implements the shared chain context: a mutable key/value
// store with placeholder and reference resolution.
//
// Placeholder resolution rewrites {expression} tokens inside strings by
// evaluating the expression against the context through a deliberately
// restricted evaluator (HCL expression syntax with no functions registered).
// The grammar covers literals, key lookups/indexing and arithmetic, and
// nothing else; expression text can originate from agent output fed back into
// later prompts, so a general evaluator must never be exposed here. A token
// that fails to parse, evaluate or stringify is left verbatim in the output.
package template
