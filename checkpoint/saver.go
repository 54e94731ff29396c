// Package checkpoint implements saving and restoring of graph variables.
//
// A checkpoint is one gob-encoded file holding the values of every variable a
// Saver tracks, tagged with the global step it was saved at. A pointer file
// named "checkpoint" in the same directory records the most recent one, with
// a directory scan as fallback when the pointer is missing or stale.
//
// The Saver captures the graph's variable set at construction. Because of
// that, it must be created after every persisted variable has been declared;
// variables declared later are invisible to it and restore fails if a tracked
// variable cannot be found in the file. Restore is all-or-nothing: values are
// staged and only assigned once the whole file has been validated.
package checkpoint

import (
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/graph"
	"github.com/gomodelkit/modelkit/pkg/errors"
)

// DirPermMode is the permission (before umask) used when creating checkpoint
// directories.
var DirPermMode = os.FileMode(0o770)

const (
	filePrefix      = "model.ckpt-"
	fileSuffix      = ".gob"
	pointerFileName = "checkpoint"
)

var stepFromFileName = regexp.MustCompile(`^model\.ckpt-(\d+)\.gob$`)

// savedVariable is the serialized form of one variable.
type savedVariable struct {
	Name      string
	Rows      int
	Cols      int
	Trainable bool
	Data      []float64
}

// state is the serialized form of a whole checkpoint.
type state struct {
	Step      int64
	SavedAt   time.Time
	Variables []savedVariable
}

// pointer is the JSON content of the "checkpoint" pointer file.
type pointer struct {
	Latest  string    `json:"latest"`
	Step    int64     `json:"step"`
	SavedAt time.Time `json:"saved_at"`
}

// Option configures a Saver.
type Option func(*Saver)

// WithKeep sets how many checkpoint files to keep in a directory; older ones
// are removed after each save. n <= 0 keeps everything. The default is 5.
func WithKeep(n int) Option {
	return func(s *Saver) { s.keep = n }
}

// Saver serializes and deserializes the variables of a graph.
type Saver struct {
	vars []*graph.Variable
	keep int
}

// NewSaver creates a Saver tracking the variables currently declared in g.
func NewSaver(g *graph.Graph, opts ...Option) *Saver {
	s := &Saver{
		vars: g.Variables(),
		keep: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NumTracked returns the number of variables the saver tracks.
func (s *Saver) NumTracked() int { return len(s.vars) }

// Save writes the current values of all tracked variables to dir, tagged
// with step, and returns the path of the written file. Every tracked variable
// must hold a value.
func (s *Saver) Save(dir string, step int64) (string, error) {
	if dir == "" {
		return "", errors.AssertionFailedf("checkpoint directory is empty")
	}
	if err := os.MkdirAll(dir, DirPermMode); err != nil {
		return "", errors.NewCheckpointError("Saver.Save", dir, "", err)
	}

	st := state{
		Step:      step,
		SavedAt:   time.Now().UTC(),
		Variables: make([]savedVariable, 0, len(s.vars)),
	}
	for _, v := range s.vars {
		value := v.Value()
		if value == nil {
			return "", errors.NewNotInitializedError("Saver.Save", v.Name())
		}
		rows, cols := v.Dims()
		data := make([]float64, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				data[i*cols+j] = value.At(i, j)
			}
		}
		st.Variables = append(st.Variables, savedVariable{
			Name:      v.Name(),
			Rows:      rows,
			Cols:      cols,
			Trainable: v.Trainable(),
			Data:      data,
		})
	}

	path := filepath.Join(dir, fileName(step))
	file, err := os.Create(path)
	if err != nil {
		return "", errors.NewCheckpointError("Saver.Save", dir, path, err)
	}
	if err := gob.NewEncoder(file).Encode(&st); err != nil {
		file.Close()
		return "", errors.NewCheckpointError("Saver.Save", dir, path, err)
	}
	if err := file.Close(); err != nil {
		return "", errors.NewCheckpointError("Saver.Save", dir, path, err)
	}

	if err := writePointer(dir, pointer{Latest: filepath.Base(path), Step: step, SavedAt: st.SavedAt}); err != nil {
		return "", err
	}
	if err := s.pruneOld(dir); err != nil {
		return "", err
	}
	return path, nil
}

// Restore loads the checkpoint at path and assigns every tracked variable its
// saved value. If any tracked variable is missing from the file or has a
// mismatched shape, nothing is assigned. Returns the global step the
// checkpoint was tagged with.
func (s *Saver) Restore(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.NewCheckpointError("Saver.Restore", filepath.Dir(path), path, err)
	}
	defer file.Close()

	var st state
	if err := gob.NewDecoder(file).Decode(&st); err != nil {
		return 0, errors.NewCheckpointError("Saver.Restore", filepath.Dir(path), path, err)
	}

	byName := make(map[string]*savedVariable, len(st.Variables))
	for i := range st.Variables {
		byName[st.Variables[i].Name] = &st.Variables[i]
	}

	// Stage first so a partial match never half-restores the graph.
	staged := make([]*mat.Dense, len(s.vars))
	for i, v := range s.vars {
		saved, ok := byName[v.Name()]
		if !ok {
			return 0, errors.NewCheckpointError("Saver.Restore", filepath.Dir(path), path,
				errors.Newf("variable %q not found in checkpoint", v.Name()))
		}
		rows, cols := v.Dims()
		if saved.Rows != rows || saved.Cols != cols {
			return 0, errors.NewCheckpointError("Saver.Restore", filepath.Dir(path), path,
				errors.Newf("variable %q has shape %dx%d in checkpoint, want %dx%d",
					v.Name(), saved.Rows, saved.Cols, rows, cols))
		}
		staged[i] = mat.NewDense(rows, cols, append([]float64(nil), saved.Data...))
	}
	for i, v := range s.vars {
		if err := v.SetValue(staged[i]); err != nil {
			return 0, err
		}
	}
	return st.Step, nil
}

// Latest returns the path of the most recent checkpoint in dir, or "" when
// the directory does not exist or holds no checkpoints. Absence is not an
// error.
func Latest(dir string) (string, error) {
	if ptr, err := readPointer(dir); err == nil && ptr.Latest != "" {
		path := filepath.Join(dir, ptr.Latest)
		if _, statErr := os.Stat(path); statErr == nil {
			return path, nil
		}
		// Stale pointer, fall through to the directory scan.
	}
	steps, err := listSteps(dir)
	if err != nil || len(steps) == 0 {
		return "", err
	}
	return filepath.Join(dir, fileName(steps[len(steps)-1])), nil
}

// List returns the steps of all checkpoints in dir, ascending. A missing
// directory yields an empty list.
func List(dir string) ([]int64, error) {
	return listSteps(dir)
}

func fileName(step int64) string {
	return filePrefix + pad(step) + fileSuffix
}

func pad(step int64) string {
	s := strconv.FormatInt(step, 10)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}

func listSteps(dir string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewCheckpointError("checkpoint.List", dir, "", err)
	}
	var steps []int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := stepFromFileName.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}
		step, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	return steps, nil
}

func (s *Saver) pruneOld(dir string) error {
	if s.keep <= 0 {
		return nil
	}
	steps, err := listSteps(dir)
	if err != nil {
		return err
	}
	for len(steps) > s.keep {
		path := filepath.Join(dir, fileName(steps[0]))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.NewCheckpointError("Saver.Save", dir, path, err)
		}
		steps = steps[1:]
	}
	return nil
}

func writePointer(dir string, ptr pointer) error {
	data, err := json.MarshalIndent(&ptr, "", "  ")
	if err != nil {
		return errors.NewCheckpointError("Saver.Save", dir, "", err)
	}
	path := filepath.Join(dir, pointerFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o660); err != nil {
		return errors.NewCheckpointError("Saver.Save", dir, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.NewCheckpointError("Saver.Save", dir, path, err)
	}
	return nil
}

func readPointer(dir string) (pointer, error) {
	var ptr pointer
	data, err := os.ReadFile(filepath.Join(dir, pointerFileName))
	if err != nil {
		return ptr, err
	}
	if err := json.Unmarshal(data, &ptr); err != nil {
		return ptr, err
	}
	return ptr, nil
}
