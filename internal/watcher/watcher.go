// Package watcher monitors a directory and ingests new or updated
// documents automatically.
package watcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain/document"
)

// Ingester is the consumer-side contract for the ingest pipeline.
type Ingester interface {
	IngestBytes(ctx context.Context, raw []byte, metadata map[string]string) error
}

// Watcher ingests plain-text files dropped into a directory. Create and
// write events trigger ingestion; everything else is ignored.
type Watcher struct {
	dir        string
	extensions map[string]struct{}
	ingester   Ingester
	fsw        *fsnotify.Watcher
	logger     *zap.Logger
}

// New creates a watcher over dir. Only files with the given extensions are
// picked up; defaults to .txt and .md.
func New(dir string, extensions []string, ingester Ingester, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".txt", ".md"}
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[ext] = struct{}{}
	}

	return &Watcher{
		dir:        dir,
		extensions: exts,
		ingester:   ingester,
		fsw:        fsw,
		logger:     logger,
	}, nil
}

// Run processes events until ctx is cancelled. A failed ingestion is logged
// and does not stop the watcher.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("file watcher started", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if _, watched := w.extensions[filepath.Ext(event.Name)]; !watched {
				continue
			}
			w.ingestFile(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("failed to read watched file", zap.String("path", path), zap.Error(err))
		return
	}
	if len(raw) == 0 {
		// Create events often fire before the writer has flushed anything;
		// the follow-up write event re-ingests the full content.
		return
	}

	metadata := map[string]string{document.MetaFileName: filepath.Base(path)}
	if err := w.ingester.IngestBytes(ctx, raw, metadata); err != nil {
		w.logger.Error("failed to ingest watched file", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("ingested watched file", zap.String("path", path))
}
