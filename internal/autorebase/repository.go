package autorebase

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cooltabs/autorebase/internal/logfields"
)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner          string
	RepositoryName string
}

func NewRepository(owner, repo string) (Repository, error) {
	if owner == "" {
		return Repository{}, errors.New("repository owner is empty")
	}

	if repo == "" {
		return Repository{}, errors.New("repository name is empty")
	}

	return Repository{Owner: owner, RepositoryName: repo}, nil
}

func (r Repository) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.RepositoryName)
}

func (r Repository) LogFields() []zap.Field {
	return []zap.Field{
		logfields.RepositoryOwner(r.Owner),
		logfields.Repository(r.RepositoryName),
	}
}
