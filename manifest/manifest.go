// Package manifest decodes and validates the JSON task manifest consumed by
// --json-task, and manages the incremental mtime cache and the optional
// local defaults file that accompany a directory-mode run.
package manifest

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	json "github.com/goccy/go-json"
)

// ConfigError reports a malformed CLI invocation or task manifest. It
// aborts the whole process before any file is touched.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Task is one entry of a manifest's ordered task list.
type Task struct {
	Type      string   `json:"type"`
	Directory string   `json:"directory"`
	Exclude   []string `json:"exclude,omitempty"`
}

// Params holds the manifest-wide pretty-printing parameters.
type Params struct {
	Format string `json:"format,omitempty"`
}

// Manifest is the decoded shape of a --json-task document.
type Manifest struct {
	Params Params `json:"params"`
	Tasks  []Task `json:"tasks"`
}

// schema is the CUE description of a valid task manifest: params.format is
// one of auto/manual, every task's type is format/compress, directory is
// required, exclude is an optional string list.
const schema = `
params: format?: "auto" | "manual"
tasks: [...{
	type:      "format" | "compress"
	directory: string & !=""
	exclude?: [...string]
}]
`

// Validate unifies raw against the manifest CUE schema, returning a
// *ConfigError describing the first field-path violation found.
func Validate(path string, raw []byte) error {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("internal manifest schema is invalid: %w", err)
	}
	dataVal := ctx.CompileBytes(raw)
	if err := dataVal.Err(); err != nil {
		return &ConfigError{Path: path, Message: "not valid JSON: " + err.Error(), Err: err}
	}
	unified := schemaVal.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ConfigError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}

// Load reads, schema-validates, and decodes the task manifest at path.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error(), Err: err}
	}
	if err := Validate(path, raw); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error(), Err: err}
	}
	if m.Params.Format == "" {
		m.Params.Format = "auto"
	}
	return &m, nil
}

// FormatTasks returns the manifest's tasks of type "format", in order.
func (m *Manifest) FormatTasks() []Task {
	return m.tasksOfType("format")
}

// CompressTasks returns the manifest's tasks of type "compress", in order.
func (m *Manifest) CompressTasks() []Task {
	return m.tasksOfType("compress")
}

func (m *Manifest) tasksOfType(t string) []Task {
	var out []Task
	for _, task := range m.Tasks {
		if task.Type == t {
			out = append(out, task)
		}
	}
	return out
}
