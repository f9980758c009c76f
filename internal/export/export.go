// Package export renders the full template set for a target and persists
// the resulting URL list as a text artifact.
package export

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/template"
	"github.com/linkforge/linkforge/internal/templates"
)

// ContentType is the MIME type of exported URL lists.
const ContentType = "text/plain; charset=utf-8"

// Exporter renders and stores URL lists.
type Exporter struct {
	loader *templates.Loader
	blobs  engine.BlobStore
	clock  engine.Clock
	prefix string
	logger *zap.Logger
}

// New constructs an Exporter.
func New(
	loader *templates.Loader,
	blobs engine.BlobStore,
	clock engine.Clock,
	prefix string,
	logger *zap.Logger,
) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "exports"
	}
	return &Exporter{
		loader: loader,
		blobs:  blobs,
		clock:  clock,
		prefix: prefix,
		logger: logger,
	}
}

// Export normalizes the raw URL, renders every template in the applicable
// collection against it, and writes the newline-joined list to blob
// storage. It returns the storage URI and the number of rendered URLs.
func (e *Exporter) Export(ctx context.Context, rawURL string) (string, int, error) {
	norm, err := engine.NormalizeURL(rawURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid url: %w", err)
	}
	videoID := engine.VideoID(norm)

	urls := RenderAll(e.loader.Current(), norm, videoID)
	if len(urls) == 0 {
		return "", 0, fmt.Errorf("no templates rendered for %s", norm)
	}

	path := fmt.Sprintf("%s/%s.txt", e.prefix, e.clock.Now().Format("20060102T150405.000000000Z0700"))
	uri, err := e.blobs.PutObject(ctx, path, ContentType, []byte(strings.Join(urls, "\n")+"\n"))
	if err != nil {
		return "", 0, fmt.Errorf("store export: %w", err)
	}

	e.logger.Info("export written",
		zap.String("url", norm),
		zap.String("uri", uri),
		zap.Int("count", len(urls)),
	)
	return uri, len(urls), nil
}

// RenderAll renders the applicable template collection in order, skipping
// templates that render empty or fail.
func RenderAll(cols templates.Collections, norm, videoID string) []string {
	tpls := cols.ForTarget(videoID)
	out := make([]string, 0, len(tpls))
	for _, tpl := range tpls {
		u, err := template.Render(tpl, norm, videoID)
		if err != nil || strings.TrimSpace(u) == "" {
			continue
		}
		out = append(out, u)
	}
	return out
}
