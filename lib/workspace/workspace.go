package workspace

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abiosoft/lineprefix"

	"github.com/relman/regminer/lib/blame"
	"github.com/relman/regminer/lib/consoles"
	"github.com/relman/regminer/lib/dataset"
	"github.com/relman/regminer/lib/ignorelist"
	"github.com/relman/regminer/lib/mining"
	"github.com/relman/regminer/lib/mirror"
	"github.com/relman/regminer/lib/model"
	"github.com/relman/regminer/lib/records"
	"github.com/relman/regminer/lib/storages"
	"github.com/relman/regminer/lib/storages/orm"
	"github.com/relman/regminer/lib/utils"
)

type Workspace struct {
	console consoles.Console
	storage storages.Storage
	records *records.Store
	root    string
}

func NewWorkspace(file string) (*Workspace, error) {
	if file == "" {
		if _, err := os.Stat("./.regminer"); err == nil {
			file = "./.regminer/regminer.sqlite"
		} else {
			file = "~/.regminer/regminer.sqlite"
		}
	}

	console := consoles.NewStdOutConsole()

	var storage storages.Storage
	var root string
	var err error
	switch {
	case file == ":memory:":
		root, err = os.MkdirTemp("", "regminer-")
		if err != nil {
			return nil, err
		}

		storage, err = orm.NewGormStorage(orm.WithSqliteInMemory(), console)

	case strings.HasSuffix(file, ".sqlite"):
		file, err = utils.PathAbs(file)
		if err != nil {
			return nil, err
		}

		root = filepath.Dir(file)

		err = createWorkspaceDir(file)
		if err != nil {
			return nil, err
		}

		storage, err = orm.NewGormStorage(orm.WithSqlite(file), console)

	default:
		return nil, fmt.Errorf("unknown storage type for file %v", file)
	}
	if err != nil {
		return nil, err
	}

	store, err := records.NewStore(filepath.Join(root, "records"))
	if err != nil {
		return nil, err
	}

	return &Workspace{
		console: console,
		storage: storage,
		records: store,
		root:    root,
	}, nil
}

func createWorkspaceDir(file string) error {
	path := filepath.Dir(file)

	if _, err := os.Stat(path); err != nil {
		fmt.Printf("Creating workspace at %v\n", path)
		err = os.MkdirAll(path, 0o700)
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *Workspace) Close() error {
	return w.storage.Close()
}

func (w *Workspace) Console() consoles.Console {
	return w.console
}

func (w *Workspace) Root() string {
	return w.root
}

func (w *Workspace) LoadMirrors() (*model.Mirrors, error) {
	return w.storage.LoadMirrors()
}

func (w *Workspace) OpenMirror(remoteURL string) (*mirror.Handle, error) {
	mirrors, err := w.storage.LoadMirrors()
	if err != nil {
		return nil, err
	}

	m := mirrors.Get(remoteURL)
	if m == nil {
		return nil, fmt.Errorf("unknown mirror: %v", remoteURL)
	}

	return mirror.Open(m)
}

func (w *Workspace) SetGlobalConfig(config string, value string) (bool, error) {
	cfg, err := w.storage.LoadConfig()
	if err != nil {
		return false, err
	}

	if v, ok := (*cfg)[config]; ok && v == value {
		return false, nil
	}

	(*cfg)[config] = value

	return true, w.storage.WriteConfig()
}

func (w *Workspace) SyncMirror(ctx context.Context, remoteURL string, rootDir string, opts *mirror.SyncOptions) (*model.Mirror, error) {
	mirrors, err := w.storage.LoadMirrors()
	if err != nil {
		return nil, err
	}

	if rootDir == "" {
		rootDir = filepath.Join(w.root, "mirrors")
	}

	manager := mirror.NewManager(w.console, w.storage)
	return manager.Sync(ctx, mirrors, remoteURL, rootDir, opts)
}

func (w *Workspace) MineHistory(handle *mirror.Handle, opts *mining.HistoryOptions) (int, error) {
	miner := mining.NewHistoryMiner(w.console, w.storage)
	return miner.Mine(handle, opts)
}

func (w *Workspace) MineFeatures(handle *mirror.Handle, opts *mining.FeatureOptions) error {
	extractor := mining.NewFeatureExtractor(w.console, w.storage)
	return extractor.Extract(handle, opts)
}

func (w *Workspace) BuildIgnoreList(handle *mirror.Handle, opts *ignorelist.Options) (*model.IgnoreList, error) {
	builder := ignorelist.NewBuilder(w.console, w.storage)
	return builder.Build(handle, opts)
}

// IgnoreList rebuilds the list from the persisted per-commit annotations,
// without re-classifying anything.
func (w *Workspace) IgnoreList(m *model.Mirror) *model.IgnoreList {
	result := model.NewIgnoreList()

	for _, c := range m.ListCommits() {
		if c.Ignore {
			result.Add(c.Hash, c.IgnoreReason)
		}
	}

	return result
}

// FixCommits lists the commits whose message references a bug, ordered by
// commit date. Low confidence references are leading bare numbers without a
// bug word and are excluded by default.
func (w *Workspace) FixCommits(m *model.Mirror, includeLowConfidence bool) []*model.Commit {
	min := model.BugIDHigh
	if includeLowConfidence {
		min = model.BugIDLow
	}

	var result []*model.Commit
	for _, c := range m.ListCommits() {
		if c.BugIDConfidence >= min {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Hash < result[j].Hash
	})

	return result
}

func (w *Workspace) WalkFixCommits(ctx context.Context, handle *mirror.Handle, fixCommits []*model.Commit, opts *blame.Options) ([]*model.RegressionLink, error) {
	walker := blame.NewWalker(w.console, w.storage)

	links, err := walker.WalkFixCommits(ctx, handle, w.IgnoreList(handle.Mirror), fixCommits, opts)
	if err != nil {
		return nil, err
	}

	err = w.storage.WriteRegressionLinks(links)
	if err != nil {
		return nil, err
	}

	return links, nil
}

func (w *Workspace) AssembleDataset(m *model.Mirror, labelsFile string, opts *dataset.Options) (*dataset.Stats, error) {
	labels, err := dataset.LoadBugLabels(labelsFile)
	if err != nil {
		return nil, err
	}

	links, err := w.storage.LoadRegressionLinks()
	if err != nil {
		return nil, err
	}

	assembler := dataset.NewAssembler(w.console, w.storage, w.records)
	return assembler.Assemble(m, labels, links, opts)
}

func (w *Workspace) RunGit(args ...string) error {
	mirrors, err := w.storage.LoadMirrors()
	if err != nil {
		return err
	}

	for _, m := range mirrors.List() {
		if m.RootDir == "" {
			continue
		}

		cmd := exec.Command("git", args...)
		cmd.Dir = m.RootDir

		w.console.Printf("%v: Executing '%v'\n", m.Name, strings.Join(cmd.Args, "' '"))
		w.console.PushPrefix("%v: ", m.Name)

		prefix := lineprefix.PrefixFunc(func() string {
			return w.console.Prepare("")
		})

		cmd.Stdin = os.Stdin
		cmd.Stdout = lineprefix.New(lineprefix.Writer(os.Stdout), prefix)
		cmd.Stderr = lineprefix.New(lineprefix.Writer(os.Stderr), prefix)

		_ = cmd.Run()

		w.console.PopPrefix()
	}

	return nil
}

func (w *Workspace) Write() error {
	w.console.Printf("Writing results...\n")

	err := w.storage.WriteConfig()
	if err != nil {
		return err
	}

	return w.storage.WriteMirrors()
}
