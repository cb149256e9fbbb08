package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/provex/internal/program"
)

// LoadStage identifies which step of LoadDir failed.
type LoadStage int

const (
	StageScan LoadStage = iota
	StageNoFiles
	StageLoad
	StageBuild
	StageCompile
)

// LoadFailure wraps a LoadDir error with the stage that produced it.
type LoadFailure struct {
	Stage LoadStage
	Err   error
}

func (e *LoadFailure) Error() string { return e.Err.Error() }

func (e *LoadFailure) Unwrap() error { return e.Err }

// Loaded is a compiled program directory.
type Loaded struct {
	Snapshot  *program.Snapshot
	Value     cue.Value
	FileCount int
}

// LoadDir loads every .cue file of dir as one CUE instance and compiles the
// unified value into a snapshot.
func LoadDir(dir string) (*Loaded, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadFailure{Stage: StageScan, Err: fmt.Errorf("scanning %s: %w", dir, err)}
	}
	if len(files) == 0 {
		return nil, &LoadFailure{Stage: StageNoFiles, Err: fmt.Errorf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadFailure{Stage: StageLoad, Err: fmt.Errorf("no CUE instances loaded")}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadFailure{Stage: StageLoad, Err: fmt.Errorf("loading CUE files: %w", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadFailure{Stage: StageBuild, Err: formatCUEError(err)}
	}

	snap, err := CompileSnapshot(value)
	if err != nil {
		return nil, &LoadFailure{Stage: StageCompile, Err: err}
	}
	return &Loaded{Snapshot: snap, Value: value, FileCount: len(files)}, nil
}

// FindCUEFiles returns the .cue files directly inside dir, sorted.
// Subdirectories are separate CUE packages and are not descended into.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
