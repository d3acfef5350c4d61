package app

import (
	"context"
	"ctxpack/internal/core/watcher"
)

// Watch re-runs target whenever a source file under the project root
// changes, until ctx is done. onRun receives the outcome of every re-run.
func (a *App) Watch(ctx context.Context, target string, onRun func([]string, Report, error)) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(changed []string) {
			if ctx.Err() != nil {
				return
			}
			a.logger.Info("sources changed, re-running", "files", len(changed))
			report, err := a.Run(ctx, target)
			if onRun != nil {
				onRun(changed, report, err)
			}
		},
	)
	if err != nil {
		return err
	}
	w.SetExtensions(a.codeParser.SupportedExtensions())
	defer w.Close()

	if err := w.Watch([]string{a.Paths.ProjectRoot}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
