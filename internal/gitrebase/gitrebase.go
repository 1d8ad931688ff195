// Package gitrebase rebases pull request branches with the git command line
// client.
package gitrebase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/githubclt"
	"github.com/cooltabs/autorebase/internal/logfields"
)

const loggerName = "gitrebase"

var autosquashPrefixes = []string{"fixup! ", "squash! "}

// GithubClient is the subset of githubclt.Client that is used by the Rebaser.
type GithubClient interface {
	GetPullRequest(ctx context.Context, owner, repo string, pullRequestNumber int) (*github.PullRequest, error)
	PullRequestCommitMessages(ctx context.Context, owner, repo string, prNumber int) ([]string, error)
}

// Rebaser rebases pull request branches onto their base branches and pushes
// the result.
type Rebaser struct {
	clt    GithubClient
	logger *zap.Logger

	workDir        string
	committerName  string
	committerEmail string
	remoteURL      func(owner, repo string) string
	apiToken       string
}

type Option func(*Rebaser)

// WithWorkDir sets the directory in which temporary repositories are
// created. By default the directory of os.TempDir() is used.
func WithWorkDir(dir string) Option {
	return func(r *Rebaser) {
		r.workDir = dir
	}
}

// WithCommitter sets the identity that is recorded as committer of rebased
// commits.
func WithCommitter(name, email string) Option {
	return func(r *Rebaser) {
		r.committerName = name
		r.committerEmail = email
	}
}

// WithAPIToken authenticates fetch and push operations with a GitHub API
// token.
func WithAPIToken(token string) Option {
	return func(r *Rebaser) {
		r.remoteURL = githubRemoteURL(token)
		r.apiToken = token
	}
}

// WithRemoteURLFunc overwrites how the URL of a repository is determined.
func WithRemoteURLFunc(fn func(owner, repo string) string) Option {
	return func(r *Rebaser) {
		r.remoteURL = fn
	}
}

func githubRemoteURL(token string) func(owner, repo string) string {
	return func(owner, repo string) string {
		if token == "" {
			return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
		}

		return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", token, owner, repo)
	}
}

func New(clt GithubClient, opts ...Option) *Rebaser {
	r := Rebaser{
		clt:            clt,
		logger:         zap.L().Named(loggerName),
		committerName:  "autorebase",
		committerEmail: "autorebase@users.noreply.github.com",
		remoteURL:      githubRemoteURL(""),
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// NeedsAutosquash returns true if a commit message of the pull request starts
// with "fixup! " or "squash! ".
func (r *Rebaser) NeedsAutosquash(ctx context.Context, owner, repo string, pullRequestNumber int) (bool, error) {
	msgs, err := r.clt.PullRequestCommitMessages(ctx, owner, repo, pullRequestNumber)
	if err != nil {
		return false, fmt.Errorf("retrieving commit messages failed: %w", err)
	}

	return containsAutosquashCommit(msgs), nil
}

func containsAutosquashCommit(msgs []string) bool {
	for _, msg := range msgs {
		for _, prefix := range autosquashPrefixes {
			if strings.HasPrefix(msg, prefix) {
				return true
			}
		}
	}

	return false
}

// Rebase rebases the head branch of the pull request onto its base branch,
// squashes fixup and squash commits and force-pushes the result.
// The push only succeeds if the remote head branch still points to the commit
// that was rebased.
// If the rebase has conflicts it is aborted and an error containing the git
// output is returned.
func (r *Rebaser) Rebase(ctx context.Context, owner, repo string, pullRequestNumber int) error {
	pr, err := r.clt.GetPullRequest(ctx, owner, repo, pullRequestNumber)
	if err != nil {
		return fmt.Errorf("retrieving pull request failed: %w", err)
	}

	if pr.GetState() == "closed" {
		return githubclt.ErrPullRequestIsClosed
	}

	baseRef := pr.GetBase().GetRef()
	headRef := pr.GetHead().GetRef()
	if baseRef == "" || headRef == "" {
		return errors.New("pull request has an empty base or head branch name")
	}

	headOwner := pr.GetHead().GetRepo().GetOwner().GetLogin()
	headRepo := pr.GetHead().GetRepo().GetName()
	if headOwner == "" || headRepo == "" {
		headOwner, headRepo = owner, repo
	}

	logger := r.logger.With(
		logfields.RepositoryOwner(owner),
		logfields.Repository(repo),
		logfields.PullRequest(pullRequestNumber),
		logfields.BaseBranch(baseRef),
		logfields.Branch(headRef),
	)

	dir, err := os.MkdirTemp(r.workDir, "autorebase-")
	if err != nil {
		return fmt.Errorf("creating temporary directory failed: %w", err)
	}

	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn(
				"removing temporary directory failed",
				logfields.Event("gitrebase_removing_tmpdir_failed"),
				zap.String("path", dir),
				zap.Error(err),
			)
		}
	}()

	g := gitCmd{dir: dir, env: r.env(), secret: r.apiToken}

	baseTrackingRef := "refs/remotes/base/" + baseRef
	headTrackingRef := "refs/remotes/head/" + headRef

	steps := [][]string{
		{"init", "-q"},
		{"remote", "add", "base", r.remoteURL(owner, repo)},
		{"remote", "add", "head", r.remoteURL(headOwner, headRepo)},
		{"fetch", "-q", "--no-tags", "base", "+refs/heads/" + baseRef + ":" + baseTrackingRef},
		{"fetch", "-q", "--no-tags", "head", "+refs/heads/" + headRef + ":" + headTrackingRef},
	}

	for _, args := range steps {
		if _, err := g.run(ctx, args...); err != nil {
			return err
		}
	}

	headSHA, err := g.run(ctx, "rev-parse", headTrackingRef)
	if err != nil {
		return err
	}
	headSHA = strings.TrimSpace(headSHA)

	logger = logger.With(logfields.Commit(headSHA))

	if _, err := g.run(ctx, "checkout", "-q", "-B", headRef, headSHA); err != nil {
		return err
	}

	if _, err := g.run(ctx, "-c", "commit.gpgsign=false", "rebase", "--interactive", "--autosquash", baseTrackingRef); err != nil {
		if _, abortErr := g.run(ctx, "rebase", "--abort"); abortErr != nil {
			logger.Debug(
				"aborting rebase failed",
				logfields.Event("gitrebase_abort_failed"),
				zap.Error(abortErr),
			)
		}

		return err
	}

	_, err = g.run(ctx,
		"push", "-q",
		"--force-with-lease=refs/heads/"+headRef+":"+headSHA,
		"head", "HEAD:refs/heads/"+headRef,
	)
	if err != nil {
		return err
	}

	logger.Info("branch rebased and pushed", logfields.Event("gitrebase_branch_pushed"))

	return nil
}

func (r *Rebaser) env() []string {
	return append(
		os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_SEQUENCE_EDITOR=true",
		"GIT_EDITOR=true",
		"GIT_COMMITTER_NAME="+r.committerName,
		"GIT_COMMITTER_EMAIL="+r.committerEmail,
	)
}

type gitCmd struct {
	dir    string
	env    []string
	secret string
}

// run executes git with args and returns its stdout.
// The returned error contains the git subcommand and its output, the other
// arguments are omitted because they can contain credentials.
func (g *gitCmd) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	cmd.Env = g.env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String() + "\n" + stdout.String())
		if g.secret != "" {
			output = strings.ReplaceAll(output, g.secret, "***")
		}

		return "", fmt.Errorf("git %s failed: %w: %s", subcommand(args), err, output)
	}

	return stdout.String(), nil
}

func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}

		return args[i]
	}

	return ""
}
