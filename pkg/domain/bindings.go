package domain

import "regexp"

// Names admit dots, dashes, and slashes so file-content bindings
// ("file_<path>") can be referenced from prompts.
var placeholderRe = regexp.MustCompile(`\{\{([\w./-]+)\}\}`)

// Bindings maps variable names to their last-known string values. It is
// scoped to one session and mutated only by explicit set operations (file
// reads, prior step outputs).
type Bindings map[string]string

// Set stores a variable value, replacing any previous binding.
func (b Bindings) Set(name, value string) {
	b[name] = value
}

// Substitute replaces {{name}} placeholders with bound values. Unbound
// placeholders are left as literal text.
func (b Bindings) Substitute(text string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if v, ok := b[name]; ok {
			return v
		}
		return match
	})
}

// Clone returns an independent copy of the bindings.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
