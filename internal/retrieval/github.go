package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/triaged/internal/config"
)

// GitHub implements Searcher over the GitHub code search API.
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGitHub creates a GitHub-backed searcher.
//
// Code search has a much lower quota than the REST API (30 requests/minute
// authenticated), so the limiter here is stricter than the tracker's.
func NewGitHub(ctx context.Context, token config.Secret, repoCfg config.RepoConfig, logger *zap.Logger) (*GitHub, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("GitHub token not set")
	}
	if repoCfg.Owner == "" || repoCfg.Name == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)

	return &GitHub{
		client:  github.NewClient(tc),
		owner:   repoCfg.Owner,
		repo:    repoCfg.Name,
		limiter: rate.NewLimiter(rate.Limit(0.4), 2),
		logger:  logger,
	}, nil
}

// Search runs one code search per path filter and fetches the content of the
// top matches.
func (g *GitHub) Search(ctx context.Context, terms []string, pathFilters []string) ([]Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if len(pathFilters) == 0 {
		pathFilters = []string{""}
	}

	var docs []Document
	for _, filter := range pathFilters {
		query := fmt.Sprintf("%s repo:%s/%s", strings.Join(terms, " "), g.owner, g.repo)
		if filter != "" {
			query += " path:" + filter
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		result, _, err := g.client.Search.Code(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: MaxResultsPerFilter},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: code search: %v", ErrUnavailable, err)
		}

		for i, match := range result.CodeResults {
			if i >= MaxResultsPerFilter {
				break
			}
			content, err := g.fetchContent(ctx, match.GetPath())
			if err != nil {
				// One unreadable file should not void the whole search.
				g.logger.Warn("skipping unreadable search result",
					zap.String("path", match.GetPath()),
					zap.Error(err))
				continue
			}
			docs = append(docs, Document{
				Name:    match.GetName(),
				Path:    match.GetPath(),
				Content: content,
			})
		}
	}

	g.logger.Debug("retrieval completed",
		zap.Strings("terms", terms),
		zap.Int("documents", len(docs)))

	return docs, nil
}

// fetchContent downloads one file and truncates it to MaxDocumentChars.
func (g *GitHub) fetchContent(ctx context.Context, path string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, nil)
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %v", ErrUnavailable, path, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(content) > MaxDocumentChars {
		content = content[:MaxDocumentChars]
	}
	return content, nil
}
