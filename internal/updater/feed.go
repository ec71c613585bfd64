package updater

import (
	"context"

	"github.com/myle-app/myle/internal/transport"
)

// DefaultRepository is the application's release repository.
const DefaultRepository = "thomasthanos/Make_Your_Life_Easier.A.E"

// ReleaseFeed reads the latest release of a repository.
type ReleaseFeed struct {
	client     *transport.Client
	repository string
}

// NewReleaseFeed creates a feed for repository.
func NewReleaseFeed(client *transport.Client, repository string) *ReleaseFeed {
	if repository == "" {
		repository = DefaultRepository
	}
	return &ReleaseFeed{client: client, repository: repository}
}

// Latest returns the newest published release.
func (f *ReleaseFeed) Latest(ctx context.Context) (*transport.Release, error) {
	return f.client.LatestRelease(ctx, f.repository)
}

// Repository returns the owner/name slug.
func (f *ReleaseFeed) Repository() string {
	return f.repository
}
