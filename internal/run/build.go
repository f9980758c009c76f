package run

import (
	"math/rand"
	"strings"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/template"
	"github.com/linkforge/linkforge/internal/templates"
	"github.com/linkforge/linkforge/internal/variant"
)

// buildTasks renders the selected template set against the normalized URL
// and classifies each result as a plain task or a mirror variant group.
// Templates that render empty or fail are skipped; duplicate mirror groups
// (same path+query+fragment across mirror hosts) are enqueued once.
func buildTasks(
	cols templates.Collections,
	mode engine.Mode,
	norm string,
	videoID string,
	shuffle bool,
) []engine.Task {
	tpls := cols.ForTarget(videoID)
	if shuffle {
		rand.Shuffle(len(tpls), func(i, j int) {
			tpls[i], tpls[j] = tpls[j], tpls[i]
		})
	}

	dedupe := variant.NewDeduper()
	tasks := make([]engine.Task, 0, len(tpls))
	for _, tpl := range tpls {
		finalURL, err := template.Render(tpl, norm, videoID)
		if err != nil || strings.TrimSpace(finalURL) == "" {
			continue
		}
		if group := variant.Group(finalURL); group != nil {
			if !dedupe.Admit(finalURL) {
				continue
			}
			tasks = append(tasks, engine.Task{Mode: mode, VariantURLs: group})
			continue
		}
		tasks = append(tasks, engine.Task{Mode: mode, URL: finalURL})
	}
	return tasks
}
