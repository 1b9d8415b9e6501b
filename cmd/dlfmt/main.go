// Command dlfmt is the batch Lua source formatter and minifier CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/dlfmt/driver"
	"github.com/chazu/dlfmt/lang"
	"github.com/chazu/dlfmt/manifest"
)

const version = "0.1.0"

var log = commonlog.GetLogger("dlfmt")

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the CLI's exit-code contract: 0 on success, 1 on any
// argument, config, or I/O error. A per-file lex/parse error is logged and
// does not stop the remaining files, but any failed file also makes the
// exit code 1.
func run(args []string) int {
	fs := flag.NewFlagSet("dlfmt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	help := fs.Bool("help", false, "Print usage")
	showVersion := fs.Bool("version", false, "Print version")
	formatFile := fs.String("format-file", "", "Format one file in place")
	formatDir := fs.String("format-directory", "", "Recursively format every *.lua under path")
	compressFile := fs.String("compress-file", "", "Compress one file in place")
	compressDir := fs.String("compress-directory", "", "Recursively compress every *.lua under path")
	jsonTask := fs.String("json-task", "", "Execute a task manifest")
	param := fs.String("param", "auto", "Pretty-printing mode for --format-*: auto|manual")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dlfmt [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dlfmt --format-file foo.lua\n")
		fmt.Fprintf(os.Stderr, "  dlfmt --format-directory ./src --param manual\n")
		fmt.Fprintf(os.Stderr, "  dlfmt --compress-directory ./dist\n")
		fmt.Fprintf(os.Stderr, "  dlfmt --json-task tasks.json\n")
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help {
		fs.Usage()
		return 0
	}
	if *showVersion {
		fmt.Println("dlfmt " + version)
		return 0
	}

	commonlog.SetMaxLevel(commonlog.Info)

	mode, err := parseMode(*param)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	ops := countSet(*formatFile, *formatDir, *compressFile, *compressDir, *jsonTask)
	if ops != 1 {
		log.Errorf("exactly one of --format-file, --format-directory, --compress-file, --compress-directory, --json-task is required")
		return 1
	}

	ctx := context.Background()

	switch {
	case *formatFile != "":
		return runSingleFile(ctx, *formatFile, mode)
	case *compressFile != "":
		return runSingleFile(ctx, *compressFile, lang.Compress)
	case *formatDir != "":
		return runDirectory(ctx, *formatDir, mode)
	case *compressDir != "":
		return runDirectory(ctx, *compressDir, lang.Compress)
	case *jsonTask != "":
		return runManifest(ctx, *jsonTask)
	}
	return 1
}

func parseMode(param string) (lang.Mode, error) {
	switch param {
	case "auto":
		return lang.FormatAuto, nil
	case "manual":
		return lang.FormatManual, nil
	default:
		return 0, &manifest.ConfigError{Message: fmt.Sprintf("--param must be auto or manual, got %q", param)}
	}
}

func countSet(vals ...string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}
	return n
}

func runSingleFile(ctx context.Context, path string, mode lang.Mode) int {
	jobs := []driver.Job{{Path: path, Mode: mode}}
	failed, err := driver.Run(ctx, jobs)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func runDirectory(ctx context.Context, dir string, mode lang.Mode) int {
	defaults, err := manifest.LoadDefaults(dir)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	paths, err := driver.Discover(dir, prefixPaths(dir, defaults.Exclude))
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	cachePath := filepath.Join(dir, ".dlfmt_cache.json")
	cache := manifest.LoadCache(cachePath)

	jobs, err := driver.PendingJobs(paths, mode, cache)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	failed, err := driver.Run(ctx, jobs)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}
	driver.RecordCompleted(jobs, cache)
	if err := cache.Save(); err != nil {
		log.Errorf("%s", err)
		return 1
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func runManifest(ctx context.Context, path string) int {
	m, err := manifest.Load(path)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	mode, err := parseMode(m.Params.Format)
	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	cachePath := filepath.Join(filepath.Dir(path), ".dlfmt_cache.json")
	cache := manifest.LoadCache(cachePath)

	anyFailed := 0
	// Every format task completes before any compress task begins.
	anyFailed += runTasks(ctx, m.FormatTasks(), mode, cache)
	anyFailed += runTasks(ctx, m.CompressTasks(), lang.Compress, cache)

	if err := cache.Save(); err != nil {
		log.Errorf("%s", err)
		return 1
	}
	if anyFailed > 0 {
		return 1
	}
	return 0
}

func runTasks(ctx context.Context, tasks []manifest.Task, mode lang.Mode, cache *manifest.Cache) int {
	failed := 0
	for _, t := range tasks {
		paths, err := driver.Discover(t.Directory, t.Exclude)
		if err != nil {
			log.Errorf("%s", err)
			failed++
			continue
		}
		jobs, err := driver.PendingJobs(paths, mode, cache)
		if err != nil {
			log.Errorf("%s", err)
			failed++
			continue
		}
		n, err := driver.Run(ctx, jobs)
		if err != nil {
			log.Errorf("%s", err)
			failed++
			continue
		}
		driver.RecordCompleted(jobs, cache)
		failed += n
	}
	return failed
}

func prefixPaths(dir string, exclude []string) []string {
	out := make([]string, len(exclude))
	for i, e := range exclude {
		out[i] = filepath.Join(dir, e)
	}
	return out
}
