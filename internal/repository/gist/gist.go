// Package gist is a document backend that keeps the DevPulse document in a
// private GitHub Gist, one JSON file inside a gist found by its description.
//
// GitHub offers no conditional PATCH for gists, so the version check is
// done by re-reading the gist's newest commit immediately before writing. Writes from this process are serialized, which makes the check
// exact for a single server. Two processes sharing one gist can still race
// between that read and the PATCH; run one writer per gist.
package gist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/sakif/devpulse/internal/repository/docstore"
)

const (
	// Description identifies the database gist among the token owner's gists.
	Description = "DevPulse Database"
	// Filename is the gist file holding the document.
	Filename = "devpulse-data.json"
)

var _ docstore.Backend = (*Backend)(nil)

// Backend implements docstore.Backend on a GitHub Gist.
type Backend struct {
	client *github.Client
	logger *slog.Logger
	gistID string

	writeMu sync.Mutex
}

// New connects with a personal access token (gist scope) and locates or
// creates the database gist. ctx bounds only that startup lookup.
func New(ctx context.Context, token string, logger *slog.Logger) (*Backend, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	// The client outlives ctx, so it must not be derived from it.
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = 30 * time.Second
	return NewWithClient(ctx, github.NewClient(tc), logger)
}

// NewWithClient is New with a caller-built client, used to point the backend
// at a test server.
func NewWithClient(ctx context.Context, client *github.Client, logger *slog.Logger) (*Backend, error) {
	b := &Backend{client: client, logger: logger}
	if err := b.initialize(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// GistID returns the id of the gist backing the store.
func (b *Backend) GistID() string {
	return b.gistID
}

func (b *Backend) initialize(ctx context.Context) error {
	opts := &github.GistListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		gists, resp, err := b.client.Gists.List(ctx, "", opts)
		if err != nil {
			return fmt.Errorf("gist: listing gists: %w", err)
		}
		for _, g := range gists {
			if g.GetDescription() == Description {
				b.gistID = g.GetID()
				b.logger.Info("connected to existing gist database", slog.String("gistID", b.gistID))
				return nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	body, err := docstore.NewDocument().Encode()
	if err != nil {
		return err
	}

	created, _, err := b.client.Gists.Create(ctx, &github.Gist{
		Description: github.String(Description),
		Public:      github.Bool(false),
		Files: map[github.GistFilename]github.GistFile{
			Filename: {Content: github.String(string(body))},
		},
	})
	if err != nil {
		return fmt.Errorf("gist: creating database gist: %w", err)
	}

	b.gistID = created.GetID()
	b.logger.Info("created gist database", slog.String("gistID", b.gistID))
	return nil
}

// Load fetches and parses the whole document.
func (b *Backend) Load(ctx context.Context) (*docstore.Document, string, error) {
	version, err := b.revision(ctx)
	if err != nil {
		return nil, "", err
	}

	g, _, err := b.client.Gists.Get(ctx, b.gistID)
	if err != nil {
		return nil, "", fmt.Errorf("gist: fetching %s: %w", b.gistID, err)
	}

	file, ok := g.Files[Filename]
	if !ok {
		return nil, "", fmt.Errorf("gist: %s has no file %s", b.gistID, Filename)
	}

	content, err := b.fileContent(ctx, file)
	if err != nil {
		return nil, "", err
	}

	doc, err := docstore.Decode(content)
	if err != nil {
		return nil, "", err
	}
	return doc, version, nil
}

// Save rewrites the document if the gist is still at version.
func (b *Backend) Save(ctx context.Context, doc *docstore.Document, version string) (string, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	current, err := b.revision(ctx)
	if err != nil {
		return "", err
	}
	if current != version {
		return "", docstore.ErrVersionConflict
	}

	body, err := doc.Encode()
	if err != nil {
		return "", err
	}

	_, _, err = b.client.Gists.Edit(ctx, b.gistID, &github.Gist{
		Files: map[github.GistFilename]github.GistFile{
			Filename: {Content: github.String(string(body))},
		},
	})
	if err != nil {
		return "", fmt.Errorf("gist: writing %s: %w", b.gistID, err)
	}

	return b.revision(ctx)
}

func (b *Backend) Close() error {
	return nil
}

// revision is the version hash of the gist's newest commit.
func (b *Backend) revision(ctx context.Context) (string, error) {
	commits, _, err := b.client.Gists.ListCommits(ctx, b.gistID, &github.ListOptions{PerPage: 1})
	if err != nil {
		return "", fmt.Errorf("gist: listing commits of %s: %w", b.gistID, err)
	}
	if len(commits) == 0 || commits[0].GetVersion() == "" {
		return "", fmt.Errorf("gist: %s has no commits", b.gistID)
	}
	return commits[0].GetVersion(), nil
}

// fileContent returns the full file body. The gists API truncates inlined
// content of large files; those are fetched from their raw URL instead.
func (b *Backend) fileContent(ctx context.Context, file github.GistFile) ([]byte, error) {
	content := file.GetContent()
	if file.GetSize() <= len(content) || file.GetRawURL() == "" {
		return []byte(content), nil
	}

	req, err := b.client.NewRequest("GET", file.GetRawURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("gist: building raw request for %s: %w", b.gistID, err)
	}
	var buf bytes.Buffer
	if _, err := b.client.Do(ctx, req, &buf); err != nil {
		return nil, fmt.Errorf("gist: fetching raw %s: %w", Filename, err)
	}
	b.logger.Debug("loaded truncated gist file from raw url",
		slog.String("gistID", b.gistID), slog.Int("size", file.GetSize()))
	return buf.Bytes(), nil
}
