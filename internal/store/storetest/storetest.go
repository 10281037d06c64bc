// Package storetest holds the conformance suite for the storage contract.
// Both backends must pass it unchanged: the in-memory store runs it
// always, the postgres store runs it when a test database is configured.
package storetest

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/internal/domain"
)

// Factory returns a fresh, empty repository for each subtest.
type Factory func(t *testing.T) domain.LogRepository

// Owners lists every owner id the suite creates records under. Backends
// that enforce referential integrity must provision matching users before
// handing the repository to Run.
var Owners = []string{"user-a", "user-b"}

var generatedIDPattern = regexp.MustCompile(`^LOG-\d{4}-\d{6}$`)

func validInput(ownerID string) *domain.LogInput {
	return &domain.LogInput{
		PrURL:        "https://github.com/acme/repo/pull/42",
		AuthorEmail:  "dev@example.com",
		Orchestrator: "Cursor",
		LLM:          "GPT-4",
		Tags:         []string{"api", "auth"},
		Content:      "# Session notes\n\nHello World",
		OwnerID:      ownerID,
	}
}

// Run executes the full storage conformance suite against the factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("create_generates_unique_ids", func(t *testing.T) {
		repo := factory(t)

		seen := make(map[string]bool)
		for range 5 {
			log, err := repo.Create(ctx, validInput(""))
			require.NoError(t, err)
			assert.Regexp(t, generatedIDPattern, log.ID)
			assert.False(t, seen[log.ID], "generated id %s repeated", log.ID)
			seen[log.ID] = true
		}
	})

	t.Run("create_respects_explicit_id", func(t *testing.T) {
		repo := factory(t)

		log, err := repo.Create(ctx, &domain.LogInput{
			ID:           "LOG-2025-000123",
			PrURL:        "https://github.com/acme/repo/pull/1",
			AuthorEmail:  "dev@example.com",
			Orchestrator: "Cursor",
			LLM:          "GPT-4",
			Content:      "body",
		})
		require.NoError(t, err)
		assert.Equal(t, "LOG-2025-000123", log.ID)
	})

	t.Run("create_skips_ids_claimed_by_callers", func(t *testing.T) {
		repo := factory(t)

		first, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		// Claim the next slot the generator will produce, then let the
		// insert-collision retry move a generated id past it.
		var year, seq int
		_, err = fmt.Sscanf(first.ID, "LOG-%d-%d", &year, &seq)
		require.NoError(t, err)
		claimed := fmt.Sprintf("LOG-%d-%06d", year, seq+1)

		in := validInput("")
		in.ID = claimed
		in.Content = "claimed slot"
		_, err = repo.Create(ctx, in)
		require.NoError(t, err)

		generated, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)
		assert.Regexp(t, generatedIDPattern, generated.ID)
		assert.NotEqual(t, claimed, generated.ID)

		kept, err := repo.Get(ctx, claimed, "")
		require.NoError(t, err)
		assert.Equal(t, "claimed slot", kept.Content, "explicit record must survive generated inserts")
	})

	t.Run("create_stamps_timestamps_and_defaults", func(t *testing.T) {
		repo := factory(t)

		in := validInput("")
		in.Tags = nil
		log, err := repo.Create(ctx, in)
		require.NoError(t, err)
		assert.False(t, log.CreatedAt.IsZero())
		assert.False(t, log.UpdatedAt.IsZero())
		assert.NotNil(t, log.Tags)
		assert.Empty(t, log.Tags)
		assert.Empty(t, log.Branch)
	})

	t.Run("get_after_create_returns_equal_record", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID, "")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.PrURL, got.PrURL)
		assert.Equal(t, created.AuthorEmail, got.AuthorEmail)
		assert.Equal(t, created.Orchestrator, got.Orchestrator)
		assert.Equal(t, created.LLM, got.LLM)
		assert.Equal(t, created.Tags, got.Tags)
		assert.Equal(t, created.Content, got.Content)
		assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
		assert.WithinDuration(t, created.UpdatedAt, got.UpdatedAt, time.Millisecond)
	})

	t.Run("get_missing_is_not_found", func(t *testing.T) {
		repo := factory(t)

		_, err := repo.Get(ctx, "LOG-1999-999999", "")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("get_with_wrong_owner_is_not_found", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput("user-a"))
		require.NoError(t, err)

		_, err = repo.Get(ctx, created.ID, "user-b")
		require.ErrorIs(t, err, domain.ErrNotFound)

		got, err := repo.Get(ctx, created.ID, "user-a")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("list_all_newest_first", func(t *testing.T) {
		repo := factory(t)

		var ids []string
		for range 3 {
			log, err := repo.Create(ctx, validInput(""))
			require.NoError(t, err)
			ids = append(ids, log.ID)
			time.Sleep(5 * time.Millisecond)
		}

		logs, err := repo.ListAll(ctx, "")
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, ids[2], logs[0].ID)
		assert.Equal(t, ids[1], logs[1].ID)
		assert.Equal(t, ids[0], logs[2].ID)
	})

	t.Run("list_all_filters_by_owner", func(t *testing.T) {
		repo := factory(t)

		_, err := repo.Create(ctx, validInput("user-a"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, validInput("user-b"))
		require.NoError(t, err)

		forA, err := repo.ListAll(ctx, "user-a")
		require.NoError(t, err)
		require.Len(t, forA, 1)
		assert.Equal(t, "user-a", forA[0].OwnerID)

		forB, err := repo.ListAll(ctx, "user-b")
		require.NoError(t, err)
		require.Len(t, forB, 1)
		assert.Equal(t, "user-b", forB[0].OwnerID)

		all, err := repo.ListAll(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("list_recent_truncates", func(t *testing.T) {
		repo := factory(t)

		for range 4 {
			_, err := repo.Create(ctx, validInput(""))
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)
		}

		logs, err := repo.ListRecent(ctx, 2, "")
		require.NoError(t, err)
		assert.Len(t, logs, 2)

		all, err := repo.ListAll(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, all[0].ID, logs[0].ID, "most recent first")
	})

	t.Run("list_recent_invalid_limit_falls_back", func(t *testing.T) {
		repo := factory(t)

		for range 12 {
			_, err := repo.Create(ctx, validInput(""))
			require.NoError(t, err)
		}

		logs, err := repo.ListRecent(ctx, 0, "")
		require.NoError(t, err)
		assert.Len(t, logs, domain.DefaultRecentLimit)

		logs, err = repo.ListRecent(ctx, -3, "")
		require.NoError(t, err)
		assert.Len(t, logs, domain.DefaultRecentLimit)
	})

	t.Run("search_is_case_insensitive_substring", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		for _, query := range []string{"hello", "HELLO", "o WoR"} {
			logs, searchErr := repo.Search(ctx, query, "")
			require.NoError(t, searchErr)
			require.Len(t, logs, 1, "query %q", query)
			assert.Equal(t, created.ID, logs[0].ID)
		}

		logs, err := repo.Search(ctx, "xyz123", "")
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("search_covers_all_fields", func(t *testing.T) {
		repo := factory(t)

		in := validInput("")
		in.Branch = "feature/oauth-rework"
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)

		queries := []string{
			created.ID,      // id
			"acme/repo",     // prUrl
			"dev@example",   // authorEmail
			"cursor",        // orchestrator
			"gpt-4",         // llm
			"oauth-rework",  // branch
			"session notes", // content
			"auth",          // tag
		}
		for _, query := range queries {
			logs, searchErr := repo.Search(ctx, query, "")
			require.NoError(t, searchErr)
			require.NotEmpty(t, logs, "query %q should match", query)
		}
	})

	t.Run("search_treats_pattern_chars_literally", func(t *testing.T) {
		repo := factory(t)

		in := validInput("")
		in.Content = "rate is 100% here"
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)

		logs, err := repo.Search(ctx, "100%", "")
		require.NoError(t, err)
		require.Len(t, logs, 1)

		logs, err = repo.Search(ctx, "100_", "")
		require.NoError(t, err)
		assert.Empty(t, logs)
	})

	t.Run("search_filters_by_owner", func(t *testing.T) {
		repo := factory(t)

		_, err := repo.Create(ctx, validInput("user-a"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, validInput("user-b"))
		require.NoError(t, err)

		logs, err := repo.Search(ctx, "hello", "user-a")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "user-a", logs[0].OwnerID)
	})

	t.Run("update_merges_partial_fields", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		branch := "main"
		content := "updated content"
		updated, err := repo.Update(ctx, created.ID, &domain.LogPatch{
			Branch:  &branch,
			Content: &content,
		}, "")
		require.NoError(t, err)

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "main", updated.Branch)
		assert.Equal(t, "updated content", updated.Content)
		assert.Equal(t, created.PrURL, updated.PrURL, "unpatched field preserved")
		assert.Equal(t, created.Tags, updated.Tags, "unpatched tags preserved")
	})

	t.Run("update_empty_patch_bumps_only_updated_at", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		updated, err := repo.Update(ctx, created.ID, &domain.LogPatch{}, "")
		require.NoError(t, err)
		assert.Equal(t, created.PrURL, updated.PrURL)
		assert.Equal(t, created.Content, updated.Content)
		assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "UpdatedAt must strictly increase")
	})

	t.Run("stored_tags_are_isolated_from_caller_slices", func(t *testing.T) {
		repo := factory(t)

		tags := []string{"api", "auth"}
		in := validInput("")
		in.Tags = tags
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)

		tags[0] = "mutated"
		got, err := repo.Get(ctx, created.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"api", "auth"}, got.Tags)

		patchTags := []string{"deploy"}
		_, err = repo.Update(ctx, created.ID, &domain.LogPatch{Tags: &patchTags}, "")
		require.NoError(t, err)

		patchTags[0] = "mutated"
		got, err = repo.Get(ctx, created.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"deploy"}, got.Tags)
	})

	t.Run("update_missing_is_not_found", func(t *testing.T) {
		repo := factory(t)

		branch := "main"
		_, err := repo.Update(ctx, "LOG-1999-999999", &domain.LogPatch{Branch: &branch}, "")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("update_with_wrong_owner_is_not_found", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput("user-a"))
		require.NoError(t, err)

		branch := "main"
		_, err = repo.Update(ctx, created.ID, &domain.LogPatch{Branch: &branch}, "user-b")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete_then_get_is_not_found", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, created.ID, "")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = repo.Get(ctx, created.ID, "")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete_twice_reports_false", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput(""))
		require.NoError(t, err)

		first, err := repo.Delete(ctx, created.ID, "")
		require.NoError(t, err)
		assert.True(t, first)

		second, err := repo.Delete(ctx, created.ID, "")
		require.NoError(t, err)
		assert.False(t, second)
	})

	t.Run("delete_with_wrong_owner_reports_false", func(t *testing.T) {
		repo := factory(t)

		created, err := repo.Create(ctx, validInput("user-a"))
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, created.ID, "user-b")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = repo.Get(ctx, created.ID, "user-a")
		require.NoError(t, err, "record must survive a foreign delete")
	})
}
