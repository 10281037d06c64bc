package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/promptvault/promptvault/internal/domain"
	"github.com/promptvault/promptvault/internal/server/middleware"
)

// LogBody is the create request body. All fields are declared optional in
// the schema; required-field enforcement happens in domain validation so
// failures come back as 400 with field-level details rather than schema
// errors.
type LogBody struct {
	ID           string `json:"id,omitempty" doc:"Explicit log id; generated when empty"`
	PrURL        string `json:"prUrl,omitempty" doc:"Pull request URL"`
	Branch       string `json:"branch,omitempty" doc:"Git branch"`
	AuthorEmail  string `json:"authorEmail,omitempty" doc:"Author email"`
	Orchestrator string `json:"orchestrator,omitempty" doc:"Orchestrating tool"`
	LLM          string `json:"llm,omitempty" doc:"Model used"`
	Tags         string `json:"tags,omitempty" doc:"Comma-separated tags"`
	Content      string `json:"content,omitempty" doc:"Markdown content"`
}

// LogPatchBody is the update request body; nil fields are left unchanged.
type LogPatchBody struct {
	PrURL        *string `json:"prUrl,omitempty" doc:"Pull request URL"`
	Branch       *string `json:"branch,omitempty" doc:"Git branch"`
	AuthorEmail  *string `json:"authorEmail,omitempty" doc:"Author email"`
	Orchestrator *string `json:"orchestrator,omitempty" doc:"Orchestrating tool"`
	LLM          *string `json:"llm,omitempty" doc:"Model used"`
	Tags         *string `json:"tags,omitempty" doc:"Comma-separated tags"`
	Content      *string `json:"content,omitempty" doc:"Markdown content"`
}

type ListLogsOutput struct {
	Body []*domain.PromptLog
}

type RecentLogsInput struct {
	// Declared as a string so a malformed limit falls back to the default
	// instead of failing schema validation.
	Limit string `query:"limit" doc:"Maximum number of logs (default 10)"`
}

type SearchLogsInput struct {
	Q string `query:"q" doc:"Search term"`
}

type GetLogInput struct {
	ID string `path:"id" doc:"Log ID"`
}

type GetLogOutput struct {
	Body *domain.PromptLog
}

type CreateLogInput struct {
	Body LogBody
}

type CreateLogOutput struct {
	Body *domain.PromptLog
}

type UpdateLogInput struct {
	ID   string `path:"id" doc:"Log ID"`
	Body LogPatchBody
}

type UpdateLogOutput struct {
	Body *domain.PromptLog
}

type DeleteLogInput struct {
	ID string `path:"id" doc:"Log ID"`
}

// RegisterLogReadRoutes registers the read operations; the server mounts
// them behind the read gate.
func RegisterLogReadRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-logs",
		Method:      http.MethodGet,
		Path:        "/logs",
		Summary:     "List all prompt logs",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, _ *struct{}) (*ListLogsOutput, error) {
		logs, err := store.Logs().ListAll(ctx, middleware.OwnerIDFromContext(ctx))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to fetch logs")
		}

		return &ListLogsOutput{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recent-logs",
		Method:      http.MethodGet,
		Path:        "/logs/recent",
		Summary:     "List recent prompt logs",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *RecentLogsInput) (*ListLogsOutput, error) {
		limit, err := strconv.Atoi(input.Limit)
		if err != nil || limit <= 0 {
			limit = domain.DefaultRecentLimit
		}

		logs, err := store.Logs().ListRecent(ctx, limit, middleware.OwnerIDFromContext(ctx))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to fetch recent logs")
		}

		return &ListLogsOutput{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-logs",
		Method:      http.MethodGet,
		Path:        "/logs/search",
		Summary:     "Search prompt logs",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *SearchLogsInput) (*ListLogsOutput, error) {
		if input.Q == "" {
			return nil, huma.Error400BadRequest("search query is required")
		}

		logs, err := store.Logs().Search(ctx, input.Q, middleware.OwnerIDFromContext(ctx))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to search logs")
		}

		return &ListLogsOutput{Body: logs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-log",
		Method:      http.MethodGet,
		Path:        "/logs/{id}",
		Summary:     "Get a prompt log by ID",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *GetLogInput) (*GetLogOutput, error) {
		log, err := store.Logs().Get(ctx, input.ID, middleware.OwnerIDFromContext(ctx))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("log not found")
			}
			return nil, huma.Error500InternalServerError("failed to fetch log")
		}

		return &GetLogOutput{Body: log}, nil
	})
}

// RegisterLogWriteRoutes registers the mutating operations; the server
// mounts them behind the write gate.
func RegisterLogWriteRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-log",
		Method:        http.MethodPost,
		Path:          "/logs",
		Summary:       "Create a prompt log",
		Tags:          []string{"Logs"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateLogInput) (*CreateLogOutput, error) {
		in := &domain.LogInput{
			ID:           input.Body.ID,
			PrURL:        input.Body.PrURL,
			Branch:       input.Body.Branch,
			AuthorEmail:  input.Body.AuthorEmail,
			Orchestrator: input.Body.Orchestrator,
			LLM:          input.Body.LLM,
			Tags:         domain.ParseTags(input.Body.Tags),
			Content:      input.Body.Content,
			OwnerID:      middleware.OwnerIDFromContext(ctx),
		}

		if fieldErrs := in.Validate(); len(fieldErrs) > 0 {
			return nil, huma.Error400BadRequest("validation failed", detailErrors(fieldErrs)...)
		}

		log, err := store.Logs().Create(ctx, in)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to create log")
		}

		return &CreateLogOutput{Body: log}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-log",
		Method:      http.MethodPut,
		Path:        "/logs/{id}",
		Summary:     "Update a prompt log",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *UpdateLogInput) (*UpdateLogOutput, error) {
		patch := &domain.LogPatch{
			PrURL:        input.Body.PrURL,
			Branch:       input.Body.Branch,
			AuthorEmail:  input.Body.AuthorEmail,
			Orchestrator: input.Body.Orchestrator,
			LLM:          input.Body.LLM,
			Content:      input.Body.Content,
		}
		if input.Body.Tags != nil {
			tags := domain.ParseTags(*input.Body.Tags)
			patch.Tags = &tags
		}

		if fieldErrs := patch.Validate(); len(fieldErrs) > 0 {
			return nil, huma.Error400BadRequest("validation failed", detailErrors(fieldErrs)...)
		}

		log, err := store.Logs().Update(ctx, input.ID, patch, middleware.OwnerIDFromContext(ctx))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("log not found")
			}
			return nil, huma.Error500InternalServerError("failed to update log")
		}

		return &UpdateLogOutput{Body: log}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-log",
		Method:      http.MethodDelete,
		Path:        "/logs/{id}",
		Summary:     "Delete a prompt log",
		Tags:        []string{"Logs"},
	}, func(ctx context.Context, input *DeleteLogInput) (*struct{}, error) {
		deleted, err := store.Logs().Delete(ctx, input.ID, middleware.OwnerIDFromContext(ctx))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to delete log")
		}
		if !deleted {
			return nil, huma.Error404NotFound("log not found")
		}

		return nil, nil
	})
}

func detailErrors(fieldErrs []domain.FieldError) []error {
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, &huma.ErrorDetail{
			Message:  fe.Message,
			Location: "body." + fe.Field,
		})
	}
	return errs
}
