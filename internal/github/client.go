// Package github implements the change-event source and the issue sink
// on top of the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/bugrouter/internal/config"
	"github.com/rohankatakam/bugrouter/internal/errors"
	"github.com/rohankatakam/bugrouter/internal/models"
)

const defaultPageSize = 100

// Client wraps the GitHub API client with rate limiting and a
// read-through cache for commit detail lookups. It implements
// ownership.EventSource.
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	detailCache *gocache.Cache
	logger      *logrus.Logger
	pageSize    int
}

// NewClient creates a GitHub-backed change-event source. The cache
// lives as long as the client; entries are immutable once fetched, so
// sharing a client across requests is safe.
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	ghClient := github.NewClient(nil)
	if cfg.GitHub.Token != "" {
		ghClient = ghClient.WithAuthToken(cfg.GitHub.Token)
	}

	pageSize := cfg.Analysis.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		client:      ghClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.GitHub.RateLimit), 1),
		detailCache: gocache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
		logger:      logger,
		pageSize:    pageSize,
	}
}

// FetchEvents returns one page of change events since the given time.
// Pages are 1-indexed. File-level line counts come from per-commit
// detail lookups, cached by SHA.
func (c *Client) FetchEvents(ctx context.Context, repoID string, since time.Time, page int) ([]models.ChangeEvent, error) {
	owner, name, err := splitRepoID(repoID)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	opts := &github.CommitsListOptions{
		Since: since,
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: c.pageSize,
		},
	}

	commits, _, err := c.client.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "list commits for %s page %d", repoID, page)
	}

	events := make([]models.ChangeEvent, 0, len(commits))
	for _, commit := range commits {
		sha := commit.GetSHA()
		files, err := c.commitFiles(ctx, owner, name, sha)
		if err != nil {
			// A missing detail record drops the event's file stats, not
			// the whole page.
			c.logger.WithError(err).WithField("sha", sha).Debug("Commit detail fetch failed")
		}

		events = append(events, models.ChangeEvent{
			SHA:         sha,
			RepoID:      repoID,
			Author:      commit.GetCommit().GetAuthor().GetName(),
			AuthorEmail: commit.GetCommit().GetAuthor().GetEmail(),
			Message:     commit.GetCommit().GetMessage(),
			Timestamp:   commit.GetCommit().GetAuthor().GetDate().Time,
			Files:       files,
		})
	}

	return events, nil
}

// commitFiles resolves per-file change counts for a commit, hitting the
// cache first. Cached entries are never mutated.
func (c *Client) commitFiles(ctx context.Context, owner, name, sha string) ([]models.FileChange, error) {
	if cached, ok := c.detailCache.Get(sha); ok {
		return cached.([]models.FileChange), nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	detail, _, err := c.client.Repositories.GetCommit(ctx, owner, name, sha, nil)
	if err != nil {
		return nil, errors.ExternalErrorf(err, "get commit %s", sha)
	}

	files := make([]models.FileChange, 0, len(detail.Files))
	for _, f := range detail.Files {
		files = append(files, models.FileChange{
			Path:         f.GetFilename(),
			LinesChanged: f.GetChanges(),
		})
	}

	c.detailCache.Set(sha, files, gocache.DefaultExpiration)
	return files, nil
}

// LastTouched returns the timestamp of the most recent commit touching
// the given path, or a zero time when none is found.
func (c *Client) LastTouched(ctx context.Context, repoID, filePath string) (time.Time, error) {
	owner, name, err := splitRepoID(repoID)
	if err != nil {
		return time.Time{}, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return time.Time{}, fmt.Errorf("rate limiter: %w", err)
	}

	opts := &github.CommitsListOptions{
		Path:        filePath,
		ListOptions: github.ListOptions{PerPage: 1},
	}

	commits, _, err := c.client.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return time.Time{}, errors.ExternalErrorf(err, "last touch of %s", filePath)
	}
	if len(commits) == 0 {
		return time.Time{}, nil
	}
	return commits[0].GetCommit().GetAuthor().GetDate().Time, nil
}

func splitRepoID(repoID string) (owner, name string, err error) {
	parts := strings.SplitN(repoID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.ValidationErrorf("repository must be owner/name, got %q", repoID)
	}
	return parts[0], parts[1], nil
}
