package transport

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/myle-app/myle/internal/version"
)

// WindowsZipPattern matches assets such as "tool-win.zip".
var WindowsZipPattern = regexp.MustCompile(`(?i)-win(dows)?(-?x?64)?\.zip$`)

// Release is the subset of a release index entry the application reads.
type Release struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Body        string         `json:"body"`
	HTMLURL     string         `json:"html_url"`
	Prerelease  bool           `json:"prerelease"`
	PublishedAt time.Time      `json:"published_at"`
	Assets      []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is one downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Version returns the tag without its "v" prefix.
func (r *Release) Version() string {
	return version.Normalize(r.TagName)
}

// LatestAsset is the result of FetchLatestReleaseAsset.
type LatestAsset struct {
	Version  string `json:"version"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// LatestRelease fetches the latest published release of ownerRepo ("owner/name").
func (c *Client) LatestRelease(ctx context.Context, ownerRepo string) (*Release, error) {
	ownerRepo = strings.Trim(ownerRepo, "/")
	if strings.Count(ownerRepo, "/") != 1 {
		return nil, fmt.Errorf("invalid repository %q, want owner/name", ownerRepo)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, ownerRepo)
	headers := map[string]string{
		"Accept":        "application/vnd.github+json",
		"Cache-Control": "no-store",
	}

	var release Release
	if err := c.GetJSON(ctx, endpoint, headers, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// FetchLatestReleaseAsset returns the first asset of the latest release whose name matches
// pattern. Lookup failures and missing assets are both reported as *NotFoundError.
func (c *Client) FetchLatestReleaseAsset(ctx context.Context, ownerRepo string, pattern *regexp.Regexp) (*LatestAsset, error) {
	if pattern == nil {
		pattern = WindowsZipPattern
	}

	release, err := c.LatestRelease(ctx, ownerRepo)
	if err != nil {
		return nil, &NotFoundError{Repository: ownerRepo, Err: err}
	}

	for _, asset := range release.Assets {
		if pattern.MatchString(asset.Name) {
			return &LatestAsset{
				Version:  release.Version(),
				FileName: asset.Name,
				URL:      asset.BrowserDownloadURL,
				Size:     asset.Size,
			}, nil
		}
	}
	return nil, &NotFoundError{Repository: ownerRepo}
}
