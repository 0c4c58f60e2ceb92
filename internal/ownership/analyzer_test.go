package ownership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/bugrouter/internal/config"
	"github.com/rohankatakam/bugrouter/internal/models"
)

// fakeSource serves canned pages and recency answers.
type fakeSource struct {
	pages      [][]models.ChangeEvent
	errAtPage  int // 0 = never fail
	fetchCalls int

	lastTouched map[string]time.Time
	lastErr     error
}

func (f *fakeSource) FetchEvents(ctx context.Context, repoID string, since time.Time, page int) ([]models.ChangeEvent, error) {
	f.fetchCalls++
	if f.errAtPage != 0 && page >= f.errAtPage {
		return nil, errors.New("503 service unavailable")
	}
	if page <= len(f.pages) {
		return f.pages[page-1], nil
	}
	return nil, nil
}

func (f *fakeSource) LastTouched(ctx context.Context, repoID, filePath string) (time.Time, error) {
	if f.lastErr != nil {
		return time.Time{}, f.lastErr
	}
	return f.lastTouched[filePath], nil
}

func event(email string, ts time.Time, files ...models.FileChange) models.ChangeEvent {
	return models.ChangeEvent{
		SHA:         "sha-" + email,
		RepoID:      "acme/backend",
		AuthorEmail: email,
		Timestamp:   ts,
		Files:       files,
	}
}

func newTestAnalyzer(source EventSource) *Analyzer {
	return NewAnalyzer(source, config.AnalysisConfig{LookbackDays: 90, MaxPages: 10}, nil)
}

func TestAnalyzeRepository_OwnershipRanking(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		pages: [][]models.ChangeEvent{{
			event("alice@example.com", now, models.FileChange{Path: "src/auth/login.py", LinesChanged: 50}),
			event("bob@example.com", now, models.FileChange{Path: "src/auth/login.py", LinesChanged: 30}),
			event("carol@example.com", now, models.FileChange{Path: "src/auth/login.py", LinesChanged: 10}),
			event("dave@example.com", now, models.FileChange{Path: "src/auth/login.py", LinesChanged: 5}),
		}},
	}

	model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	record, ok := model.FileOwnership["src/auth/login.py"]
	require.True(t, ok)

	assert.Equal(t, "alice@example.com", record.PrimaryOwner)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, record.SecondaryOwners)
	assert.NotContains(t, record.SecondaryOwners, record.PrimaryOwner)
	assert.Len(t, record.SecondaryOwners, 2)
	assert.Equal(t, 95, record.ModificationCount)

	assert.Equal(t, 50, model.DeveloperActivity["alice@example.com"])
	assert.Equal(t, 5, model.DeveloperActivity["dave@example.com"])
}

func TestAnalyzeRepository_TieBreakByIdentity(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		pages: [][]models.ChangeEvent{{
			event("zoe@example.com", now, models.FileChange{Path: "main.go", LinesChanged: 20}),
			event("amy@example.com", now, models.FileChange{Path: "main.go", LinesChanged: 20}),
		}},
	}

	model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	record := model.FileOwnership["main.go"]
	require.NotNil(t, record)
	assert.Equal(t, "amy@example.com", record.PrimaryOwner)
	assert.Equal(t, []string{"zoe@example.com"}, record.SecondaryOwners)
}

func TestComplexityScore_Saturates(t *testing.T) {
	contributors := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		contributors[string(rune('a'+i%26))+string(rune('0'+i%10))+string(rune('A'+i%26))] = struct{}{}
	}

	score := complexityScore(&fileComplexity{totalChanges: 10000, contributors: contributors})
	assert.LessOrEqual(t, score, 1.0)
	assert.InDelta(t, 1.0, score, 1e-9)

	// Known mid-range value: 80 lines, one contributor.
	one := map[string]struct{}{"alice@example.com": {}}
	assert.InDelta(t, 0.62, complexityScore(&fileComplexity{totalChanges: 80, contributors: one}), 1e-9)

	assert.Equal(t, 0.0, complexityScore(nil))
}

func TestAnalyzeRepository_PageCap(t *testing.T) {
	now := time.Now()
	pages := make([][]models.ChangeEvent, 20)
	for i := range pages {
		pages[i] = []models.ChangeEvent{
			event("alice@example.com", now, models.FileChange{Path: "a.go", LinesChanged: 1}),
		}
	}
	source := &fakeSource{pages: pages}

	analyzer := NewAnalyzer(source, config.AnalysisConfig{LookbackDays: 90, MaxPages: 10}, nil)
	model, err := analyzer.AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	// Only the capped pages contribute; pages beyond the cap are
	// silently excluded.
	assert.Equal(t, 10, source.fetchCalls)
	assert.Equal(t, 10, model.DeveloperActivity["alice@example.com"])
}

func TestAnalyzeRepository_FetchFailureDegrades(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		pages: [][]models.ChangeEvent{
			{event("alice@example.com", now, models.FileChange{Path: "a.go", LinesChanged: 10})},
			{event("bob@example.com", now, models.FileChange{Path: "b.go", LinesChanged: 10})},
		},
		errAtPage: 2,
	}

	model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	// Page 1 collected, page 2 failed: alice is in, bob is not.
	assert.Contains(t, model.FileOwnership, "a.go")
	assert.NotContains(t, model.FileOwnership, "b.go")
}

func TestAnalyzeRepository_EmptyHistory(t *testing.T) {
	model, err := newTestAnalyzer(&fakeSource{}).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	assert.Empty(t, model.FileOwnership)
	assert.Empty(t, model.DeveloperActivity)
	assert.Empty(t, model.RepositoryExperts)
	assert.NotNil(t, model.FileOwnership)
	assert.NotNil(t, model.DeveloperActivity)
	assert.NotNil(t, model.RepositoryExperts)
}

func TestAnalyzeRepository_DomainExperts(t *testing.T) {
	now := time.Now()
	source := &fakeSource{
		pages: [][]models.ChangeEvent{{
			event("alice@example.com", now,
				models.FileChange{Path: "src/auth/login.py", LinesChanged: 40},
				models.FileChange{Path: "src/auth/token.py", LinesChanged: 20}),
			event("bob@example.com", now,
				models.FileChange{Path: "src/auth/login.py", LinesChanged: 10},
				models.FileChange{Path: "Makefile", LinesChanged: 5}),
		}},
	}

	model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	authExperts := model.RepositoryExperts["src/auth"]
	require.Len(t, authExperts, 2)
	assert.Equal(t, models.DomainExpert{Developer: "alice@example.com", Changes: 60}, authExperts[0])
	assert.Equal(t, models.DomainExpert{Developer: "bob@example.com", Changes: 10}, authExperts[1])

	// Same changes counted again under the extension key.
	pyExperts := model.RepositoryExperts["*.py"]
	require.Len(t, pyExperts, 2)
	assert.Equal(t, "alice@example.com", pyExperts[0].Developer)
	assert.Equal(t, 60, pyExperts[0].Changes)

	// Root-level file with no extension.
	unknown := model.RepositoryExperts["*.unknown"]
	require.Len(t, unknown, 1)
	assert.Equal(t, "bob@example.com", unknown[0].Developer)
	assert.Contains(t, model.RepositoryExperts, "")
}

func TestAnalyzeRepository_DomainExpertsCapped(t *testing.T) {
	now := time.Now()
	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	var events []models.ChangeEvent
	for i, email := range emails {
		events = append(events, event(email, now,
			models.FileChange{Path: "pkg/core.go", LinesChanged: (i + 1) * 10}))
	}
	source := &fakeSource{pages: [][]models.ChangeEvent{events}}

	model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	experts := model.RepositoryExperts["pkg"]
	require.Len(t, experts, 3)
	assert.Equal(t, "e@x.com", experts[0].Developer)
	assert.Equal(t, "d@x.com", experts[1].Developer)
	assert.Equal(t, "c@x.com", experts[2].Developer)
}

func TestAnalyzeRepository_LastModified(t *testing.T) {
	now := time.Now()
	touched := now.Add(-48 * time.Hour)

	t.Run("resolved from source", func(t *testing.T) {
		source := &fakeSource{
			pages: [][]models.ChangeEvent{{
				event("alice@example.com", now, models.FileChange{Path: "a.go", LinesChanged: 1}),
			}},
			lastTouched: map[string]time.Time{"a.go": touched},
		}
		model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
		require.NoError(t, err)
		assert.True(t, model.FileOwnership["a.go"].LastModified.Equal(touched))
	})

	t.Run("fails soft to now", func(t *testing.T) {
		source := &fakeSource{
			pages: [][]models.ChangeEvent{{
				event("alice@example.com", now, models.FileChange{Path: "a.go", LinesChanged: 1}),
			}},
			lastErr: errors.New("rate limited"),
		}
		before := time.Now()
		model, err := newTestAnalyzer(source).AnalyzeRepository(context.Background(), "acme/backend")
		require.NoError(t, err)

		got := model.FileOwnership["a.go"].LastModified
		assert.False(t, got.IsZero())
		assert.False(t, got.Before(before))
	})
}

func TestAnalyzeRepository_Idempotent(t *testing.T) {
	now := time.Now()
	touched := now.Add(-24 * time.Hour)
	makeSource := func() *fakeSource {
		return &fakeSource{
			pages: [][]models.ChangeEvent{{
				event("alice@example.com", now,
					models.FileChange{Path: "src/auth/login.py", LinesChanged: 80}),
				event("bob@example.com", now,
					models.FileChange{Path: "src/auth/login.py", LinesChanged: 20},
					models.FileChange{Path: "src/db/conn.py", LinesChanged: 5}),
			}},
			lastTouched: map[string]time.Time{
				"src/auth/login.py": touched,
				"src/db/conn.py":    touched,
			},
		}
	}

	first, err := newTestAnalyzer(makeSource()).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)
	second, err := newTestAnalyzer(makeSource()).AnalyzeRepository(context.Background(), "acme/backend")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
