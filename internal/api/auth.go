package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/promptvault/promptvault/internal/domain"
	"github.com/promptvault/promptvault/internal/server/middleware"
)

type CurrentUserOutput struct {
	Body *domain.User
}

// RegisterAuthRoutes exposes the signed-in user. The OAuth redirect
// endpoints live in the server package; they are browser flows, not JSON
// operations.
func RegisterAuthRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "current-user",
		Method:      http.MethodGet,
		Path:        "/auth/user",
		Summary:     "Get the signed-in user",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*CurrentUserOutput, error) {
		user, ok := middleware.UserFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("not signed in")
		}

		return &CurrentUserOutput{Body: user}, nil
	})
}
