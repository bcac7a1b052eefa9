package tracker

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

// githubAPILimit bounds outbound GitHub API calls well below the
// authenticated quota of 5000/hour.
var githubAPILimit = rate.Limit(1)

// GitHub implements Tracker against the GitHub Issues API.
type GitHub struct {
	client   *github.Client
	owner    string
	repo     string
	botLogin string
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewGitHub creates a GitHub-backed tracker.
func NewGitHub(ctx context.Context, token config.Secret, repoCfg config.RepoConfig, botLogin string, logger *zap.Logger) (*GitHub, error) {
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
		client:   github.NewClient(tc),
		owner:    repoCfg.Owner,
		repo:     repoCfg.Name,
		botLogin: botLogin,
		limiter:  rate.NewLimiter(githubAPILimit, 5),
		logger:   logger,
	}, nil
}

// Fetch returns the issue snapshot with all comments in chronological order.
func (g *GitHub) Fetch(ctx context.Context, number int) (*Issue, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ghIssue, _, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching issue #%d: %v", ErrUnavailable, number, err)
	}

	issue := &Issue{
		Number: number,
		Title:  ghIssue.GetTitle(),
		Body:   ghIssue.GetBody(),
		URL:    ghIssue.GetHTMLURL(),
	}

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		comments, resp, err := g.client.Issues.ListComments(ctx, g.owner, g.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: listing comments for #%d: %v", ErrUnavailable, number, err)
		}
		for _, c := range comments {
			author := c.GetUser().GetLogin()
			body := c.GetBody()
			issue.Comments = append(issue.Comments, Comment{
				Author:    author,
				Body:      body,
				FromAgent: g.isAgent(author, body),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	g.logger.Debug("issue fetched",
		zap.Int("number", number),
		zap.Int("comments", len(issue.Comments)))

	return issue, nil
}

// PostComment adds a comment with the agent signature appended.
func (g *GitHub) PostComment(ctx context.Context, number int, body string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	signed := body + "\n\n" + AgentSignature
	_, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, number, &github.IssueComment{
		Body: github.String(signed),
	})
	if err != nil {
		return fmt.Errorf("%w: posting comment on #%d: %v", ErrUnavailable, number, err)
	}
	g.logger.Info("comment posted", zap.Int("number", number), zap.Int("length", len(signed)))
	return nil
}

// AddLabel suggests a label on the issue.
func (g *GitHub) AddLabel(ctx context.Context, number int, label string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_, _, err := g.client.Issues.AddLabelsToIssue(ctx, g.owner, g.repo, number, []string{label})
	if err != nil {
		return fmt.Errorf("%w: labeling #%d: %v", ErrUnavailable, number, err)
	}
	return nil
}

// isAgent reports whether a comment is agent-authored.
func (g *GitHub) isAgent(author, body string) bool {
	if g.botLogin != "" && strings.EqualFold(author, g.botLogin) {
		return true
	}
	return strings.Contains(body, AgentSignature)
}
