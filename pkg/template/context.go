package template

import (
	"strings"
	"sync"
)

// RefSigil marks a string argument as the name of a context key to store a
// result under, rather than a value to substitute.
const RefSigil = "$"

// Context is the shared mutable key/value store of a chain. Values are added
// by Update and by step completion; there is no deletion. The zero value is
// not usable; use NewContext.
//
// The engine itself is single-threaded, but the context is guarded by a
// mutex so that snapshots and external reads stay safe if a caller drives
// steps from another goroutine.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewContext creates a context pre-populated with the given pairs.
// A nil map yields an empty context.
func NewContext(initial map[string]any) *Context {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Context{values: values}
}

// Update merges key/value pairs into the context. No validation is applied;
// last write wins on key collision.
func (c *Context) Update(pairs map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range pairs {
		c.values[k] = v
	}
}

// Set stores a single value. Equivalent to Update with one pair.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// GetValue returns the value under key, or nil if absent. It never fails.
func (c *Context) GetValue(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// Len returns the number of stored keys.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Snapshot returns a shallow copy of the stored pairs.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// ResolveString rewrites every {expression} token in s against the current
// context. Unresolvable tokens are left verbatim; resolution never fails.
func (c *Context) ResolveString(s string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	return resolveTokens(s, c.variables())
}

// ResolvePlaceholders recursively rewrites the string leaves of value:
// strings are resolved directly, maps and slices are walked, everything else
// passes through unchanged.
func (c *Context) ResolvePlaceholders(value any) any {
	switch v := value.(type) {
	case string:
		return c.ResolveString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = c.ResolvePlaceholders(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = c.ResolvePlaceholders(item)
		}
		return out
	default:
		return value
	}
}

// ResolveRef strips the storage sigil from a string argument: "$answer"
// becomes the bare key "answer". Non-strings and strings without the sigil
// are returned unchanged. This is distinct from placeholder resolution; a
// ref names where a result should be stored, not what to substitute.
func (c *Context) ResolveRef(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if strings.HasPrefix(s, RefSigil) {
		return s[len(RefSigil):]
	}
	return value
}
