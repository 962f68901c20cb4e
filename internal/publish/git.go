package publish

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sirupsen/logrus"
)

type Committer struct {
	repoPath string
	author   string
	email    string
	logger   *logrus.Logger
}

func NewCommitter(repoPath, author, email string, logger *logrus.Logger) *Committer {
	if author == "" {
		author = "marketpages"
	}
	if email == "" {
		email = "marketpages@localhost"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Committer{repoPath: repoPath, author: author, email: email, logger: logger}
}

// CommitIfChanged stages the whole tree and commits it with a date-stamped
// message when the worktree is dirty. A directory that is not a repository,
// or a clean tree, is a no-op. There is no push.
func (c *Committer) CommitIfChanged(now time.Time) (bool, error) {
	repo, err := git.PlainOpen(c.repoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		c.logger.WithField("path", c.repoPath).Debug("output dir is not a git repository, skipping commit")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open repo: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	if status.IsClean() {
		c.logger.Debug("worktree clean, nothing to commit")
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("stage changes: %w", err)
	}

	msg := fmt.Sprintf("site update %s", now.Format("2006-01-02 15:04"))
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.author,
			Email: c.email,
			When:  now,
		},
	})
	if err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"commit":  hash.String()[:8],
		"message": msg,
	}).Info("committed site changes")
	return true, nil
}
