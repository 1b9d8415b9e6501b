package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults holds the contents of an optional .dlfmt.toml in the directory
// given to --format-directory or --compress-directory. The CLI applies only
// Exclude, whose entries are taken relative to that directory; Param is
// decoded but does not change the printing mode, which comes from --param.
type Defaults struct {
	Param   string   `toml:"param"`
	Exclude []string `toml:"exclude"`
}

// LoadDefaults reads .dlfmt.toml from dir. A missing file is not an error;
// it returns a zero Defaults, mirroring the incremental cache's
// missing-is-empty tolerance.
func LoadDefaults(dir string) (*Defaults, error) {
	path := filepath.Join(dir, ".dlfmt.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Defaults{}, nil
		}
		return nil, err
	}
	var d Defaults
	if err := toml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
