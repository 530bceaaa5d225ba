package util

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// WalkFunc is called for every regular file that was not skipped
type WalkFunc func(path string) error

// SkipFunc reports whether a path should be skipped. Skipping a directory
// skips everything below it.
type SkipFunc func(path string, isDir bool) bool

// DefaultSkipDirs lists directory names that never hold corpus files
var DefaultSkipDirs = map[string]bool{
	".git": true, "node_modules": true, ".vscode": true, ".idea": true, "vendor": true,
	"target": true, "build": true, "dist": true, "__pycache__": true, ".pytest_cache": true,
	"coverage": true, "site-packages": true, ".next": true, ".nuxt": true, "venv": true,
}

// SkipDefaultDirs is a SkipFunc that skips DefaultSkipDirs
func SkipDefaultDirs(path string, isDir bool) bool {
	return isDir && DefaultSkipDirs[filepath.Base(path)]
}

// WalkDirTree walks root and hands every file to numWorkers goroutines running
// walkFn. Failures of walkFn are logged and do not stop the walk. The walk
// stops early when ctx is cancelled and returns ctx.Err().
func WalkDirTree(ctx context.Context, root string, walkFn WalkFunc, skipPath SkipFunc, logger *zap.Logger, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}

	workQueue := make(chan string, numWorkers*2)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workQueue {
				if err := walkFn(path); err != nil {
					logger.Error("WalkDirTree - Failed to process file", zap.String("path", path), zap.Error(err))
				}
			}
		}()
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Warn("WalkDirTree - Cannot access path", zap.String("path", path), zap.Error(err))
			if path == root {
				return err
			}
			return nil
		}
		if skipPath != nil && path != root && skipPath(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		select {
		case workQueue <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(workQueue)

	// Wait for all workers to finish
	wg.Wait()

	return err
}
