package domain

import (
	"context"
	"strings"
	"time"
)

// PromptLog records one AI-assisted coding session: the pull request it
// produced, who drove it, which tool and model were involved, and the
// full prompt transcript as markdown.
type PromptLog struct {
	ID           string    `json:"id"`
	PrURL        string    `json:"prUrl"`
	Branch       string    `json:"branch,omitempty"`
	AuthorEmail  string    `json:"authorEmail"`
	Orchestrator string    `json:"orchestrator"`
	LLM          string    `json:"llm"`
	Tags         []string  `json:"tags"`
	Content      string    `json:"content"`
	OwnerID      string    `json:"ownerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LogInput carries the fields a caller supplies when creating a log.
// ID is optional; when empty the repository assigns one via its IDGenerator.
type LogInput struct {
	ID           string
	PrURL        string
	Branch       string
	AuthorEmail  string
	Orchestrator string
	LLM          string
	Tags         []string
	Content      string
	OwnerID      string
}

// LogPatch carries a partial update. Nil fields are left unchanged.
// The record ID is immutable and therefore not part of the patch.
type LogPatch struct {
	PrURL        *string
	Branch       *string
	AuthorEmail  *string
	Orchestrator *string
	LLM          *string
	Tags         *[]string
	Content      *string
}

// LogRepository stores and retrieves prompt logs. An empty ownerID disables
// owner scoping; a non-empty ownerID treats records owned by anyone else as
// not found. Listings are ordered by CreatedAt descending.
type LogRepository interface {
	Get(ctx context.Context, id, ownerID string) (*PromptLog, error)
	ListAll(ctx context.Context, ownerID string) ([]*PromptLog, error)
	ListRecent(ctx context.Context, limit int, ownerID string) ([]*PromptLog, error)
	Search(ctx context.Context, query, ownerID string) ([]*PromptLog, error)
	Create(ctx context.Context, in *LogInput) (*PromptLog, error)
	Update(ctx context.Context, id string, patch *LogPatch, ownerID string) (*PromptLog, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}

// DefaultRecentLimit is applied when ListRecent is called with a
// non-positive limit.
const DefaultRecentLimit = 10

// ParseTags splits a comma-separated tag string into trimmed, non-empty
// tags. An empty input yields an empty (non-nil) slice.
func ParseTags(s string) []string {
	tags := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// Apply merges the patch onto the log in place and refreshes UpdatedAt.
func (p *LogPatch) Apply(log *PromptLog, now time.Time) {
	if p.PrURL != nil {
		log.PrURL = *p.PrURL
	}
	if p.Branch != nil {
		log.Branch = *p.Branch
	}
	if p.AuthorEmail != nil {
		log.AuthorEmail = *p.AuthorEmail
	}
	if p.Orchestrator != nil {
		log.Orchestrator = *p.Orchestrator
	}
	if p.LLM != nil {
		log.LLM = *p.LLM
	}
	if p.Tags != nil {
		log.Tags = *p.Tags
	}
	if p.Content != nil {
		log.Content = *p.Content
	}
	log.UpdatedAt = now
}

// Matches reports whether the query is a case-insensitive substring of any
// searchable field: id, prUrl, authorEmail, orchestrator, llm, branch,
// content, or any tag. Both storage backends share this definition so the
// in-memory scan and the SQL ILIKE query agree.
func (l *PromptLog) Matches(query string) bool {
	q := strings.ToLower(query)
	fields := []string{l.ID, l.PrURL, l.AuthorEmail, l.Orchestrator, l.LLM, l.Branch, l.Content}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// OwnedBy reports whether the log passes the owner filter. An empty
// ownerID matches everything.
func (l *PromptLog) OwnedBy(ownerID string) bool {
	return ownerID == "" || l.OwnerID == ownerID
}
