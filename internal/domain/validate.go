package domain

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks the required create fields. Orchestrator and LLM come
// from small enumerated sets client-side, but the server only enforces
// non-emptiness so new tools and models need no server change.
func (in *LogInput) Validate() []FieldError {
	var errs []FieldError
	if in.PrURL == "" {
		errs = append(errs, FieldError{Field: "prUrl", Message: "is required"})
	}
	if in.AuthorEmail == "" {
		errs = append(errs, FieldError{Field: "authorEmail", Message: "is required"})
	}
	if in.Orchestrator == "" {
		errs = append(errs, FieldError{Field: "orchestrator", Message: "is required"})
	}
	if in.LLM == "" {
		errs = append(errs, FieldError{Field: "llm", Message: "is required"})
	}
	if in.Content == "" {
		errs = append(errs, FieldError{Field: "content", Message: "is required"})
	}
	return errs
}

// Validate checks that supplied patch fields do not blank out required
// columns. Branch and tags may be set to empty.
func (p *LogPatch) Validate() []FieldError {
	var errs []FieldError
	required := []struct {
		field string
		value *string
	}{
		{"prUrl", p.PrURL},
		{"authorEmail", p.AuthorEmail},
		{"orchestrator", p.Orchestrator},
		{"llm", p.LLM},
		{"content", p.Content},
	}
	for _, r := range required {
		if r.value != nil && *r.value == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "must not be empty"})
		}
	}
	return errs
}
