// Package driver implements the external glue around the lang/printer
// core: directory discovery, the mtime-based incremental cache, and
// bounded-parallel dispatch across files.
package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tliron/commonlog"

	"github.com/chazu/dlfmt/lang"
	"github.com/chazu/dlfmt/manifest"
	"github.com/chazu/dlfmt/printer"
)

var log = commonlog.GetLogger("dlfmt.driver")

// IOError reports a file-open/read/write failure or a directory-walk
// failure. It has the same abort-this-file-only scope as LexError and
// ParseError.
type IOError struct {
	Path    string
	Message string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Job describes one file's worth of work: which mode to run and, for
// Auto/Manual, which printer sub-mode to select.
type Job struct {
	Path string
	Mode lang.Mode
}

// Run processes jobs with up to GOMAXPROCS workers running concurrently,
// isolating each file's failure from the rest. It returns the number of
// files that failed; a non-nil error is returned only if the run itself
// could not proceed (never for an individual file's lex/parse/IO error --
// those are logged and counted, matching spec.md's per-file error scope).
// Cache filtering happens before Run is called, via PendingJobs; Run itself
// only executes the jobs it is given.
func Run(ctx context.Context, jobs []Job) (failed int, err error) {
	if len(jobs) == 0 {
		return 0, nil
	}

	sem := semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))
	g, ctx := errgroup.WithContext(ctx)

	var failCount atomic.Int32
	for _, job := range jobs {
		job := job
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := processFile(job); err != nil {
				log.Errorf("%s", err)
				failCount.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(failCount.Load()), err
	}
	return int(failCount.Load()), nil
}

// processFile reads, lexes, parses, prints, and writes back a single file.
// Its output is only opened for writing after a successful parse, so a
// LexError or ParseError never leaves a partially-written file behind.
func processFile(job Job) error {
	raw, err := os.ReadFile(job.Path)
	if err != nil {
		return &IOError{Path: job.Path, Message: err.Error(), Err: err}
	}

	lex := lang.NewLexer(job.Path, string(raw), job.Mode)
	tokens, comments, err := lex.Lex()
	if err != nil {
		return err
	}

	store := lang.NewStore()
	defer store.Clear()
	root, err := lang.NewParser(job.Path, tokens, store).Parse()
	if err != nil {
		return err
	}

	f, err := os.Create(job.Path)
	if err != nil {
		return &IOError{Path: job.Path, Message: err.Error(), Err: err}
	}
	defer f.Close()

	if err := printer.Print(root, comments, job.Mode, f); err != nil {
		return &IOError{Path: job.Path, Message: err.Error(), Err: err}
	}
	return nil
}

// Discover walks root recursively, returning every *.lua file whose path
// does not begin with any of exclude's prefixes.
func Discover(root string, exclude []string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return &IOError{Path: path, Message: err.Error(), Err: err}
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".lua") {
			return nil
		}
		for _, prefix := range exclude {
			if strings.HasPrefix(path, prefix) {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// PendingJobs filters candidates down to files the cache says need
// (re)processing, based on each file's current mtime.
func PendingJobs(paths []string, mode lang.Mode, cache *manifest.Cache) ([]Job, error) {
	var jobs []Job
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &IOError{Path: path, Message: err.Error(), Err: err}
		}
		mtime := info.ModTime().Unix()
		if cache.NeedsUpdate(path, mtime) {
			jobs = append(jobs, Job{Path: path, Mode: mode})
		}
	}
	return jobs, nil
}

// RecordCompleted marks every job's file as up to date in the cache, using
// its mtime after processing (the write-back changes it, so this must run
// after Run, not before).
func RecordCompleted(jobs []Job, cache *manifest.Cache) {
	for _, job := range jobs {
		info, err := os.Stat(job.Path)
		if err != nil {
			continue
		}
		cache.Record(job.Path, info.ModTime().Unix())
	}
}
