package domain

// Step is one node in a prompt sequence. Steps are immutable once loaded and
// owned exclusively by their graph.
type Step struct {
	ID     string `json:"id" yaml:"id"`
	Prompt string `json:"prompt" yaml:"prompt"`

	// Start marks the entry step. At most one step should carry it; if none
	// does, the first step in declaration order is the entry.
	Start bool `json:"start,omitempty" yaml:"start,omitempty"`

	// Next is the explicit fallback target when no branch rule fires. Empty
	// means "the positionally following step, if any".
	Next string `json:"next,omitempty" yaml:"next,omitempty"`

	// Conditions are evaluated in declaration order; the first satisfied
	// rule wins.
	Conditions []BranchRule `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Side-effect action lists, executed around the model call. Failures in
	// either are logged and never abort the step.
	BrowserActions []BrowserAction `json:"browser_actions,omitempty" yaml:"browser_actions,omitempty"`
	FileOperations []FileOperation `json:"file_operations,omitempty" yaml:"file_operations,omitempty"`
}

// BranchRule is a condition plus a "then" target, with an optional "else".
// An empty Then on a fired rule terminates the sequence.
type BranchRule struct {
	If   string `json:"if" yaml:"if"`
	Then string `json:"then,omitempty" yaml:"then,omitempty"`
	Else string `json:"else,omitempty" yaml:"else,omitempty"`

	cond Condition
}

// Compile parses the rule's condition text once. Graphs call this at load
// time; Eval falls back to parsing on demand so it stays total either way.
func (r *BranchRule) Compile() {
	r.cond = ParseCondition(r.If)
}

// Eval reports whether the rule's condition holds.
func (r *BranchRule) Eval(response string, vars Bindings) bool {
	if r.cond == nil {
		r.cond = ParseCondition(r.If)
	}
	return r.cond.Eval(response, vars)
}

// BrowserAction describes one browser side effect (navigate, click, type,
// wait, screenshot). Params are passed through to the browser collaborator.
type BrowserAction struct {
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// FileOperation describes a file side effect attached to a step.
type FileOperation struct {
	// Type is "read" or "write". Reads bind the file content to the
	// variable "file_<target>"; writes persist the step's response text.
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target" yaml:"target"`

	// ExtractCode narrows a write to the first fenced code block in the
	// response instead of the full text.
	ExtractCode bool   `json:"extract_code,omitempty" yaml:"extract_code,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
}
