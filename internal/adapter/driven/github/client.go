// Package github implements the RevisionSource port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RevisionSource = (*Client)(nil)

// maxBranchRedirects follows a renamed branch once.
const maxBranchRedirects = 1

// Client resolves commits of the application's source repository.
type Client struct {
	gh     *gh.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// NewClient creates a client for repoFullName ("owner/repo") with the
// following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when token is set)
func NewClient(repoFullName, token string, logger *slog.Logger) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client, owner: owner, repo: repo, logger: logger}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, repoFullName string, logger *slog.Logger) (*Client, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client := gh.NewClient(httpClient)
	client.BaseURL = u

	return &Client{gh: client, owner: owner, repo: repo, logger: logger}, nil
}

// HeadRevision returns the head commit of branch. An empty branch resolves
// the repository's default branch first.
func (c *Client) HeadRevision(ctx context.Context, branch string) (model.Revision, error) {
	if branch == "" {
		repo, resp, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
		if err != nil {
			return model.Revision{}, fmt.Errorf("get repository %s/%s: %w", c.owner, c.repo, err)
		}
		c.logRateLimit(resp, "repos.get")
		branch = repo.GetDefaultBranch()
	}

	b, resp, err := c.gh.Repositories.GetBranch(ctx, c.owner, c.repo, branch, maxBranchRedirects)
	if err != nil {
		return model.Revision{}, fmt.Errorf("get branch %s of %s/%s: %w", branch, c.owner, c.repo, err)
	}
	c.logRateLimit(resp, "repos.get_branch")

	commit := b.GetCommit()
	return model.Revision{
		Branch:  b.GetName(),
		SHA:     commit.GetSHA(),
		Message: firstLine(commit.GetCommit().GetMessage()),
		URL:     commit.GetHTMLURL(),
	}, nil
}

func (c *Client) logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	c.logger.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 10 {
		c.logger.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
