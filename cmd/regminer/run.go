package main

import (
	"time"

	"github.com/pkg/errors"
)

type RunPipelineCmd struct {
	RemoteURL string `arg:"" help:"Remote repository to mine end to end."`
	Labels    string `arg:"" help:"JSON file mapping bug ids to whether the bug is a genuine defect." type:"existingfile"`
	Branch    string `help:"Branch to mine. Default is the remote HEAD."`
	Cutoff    string `help:"Revision to stop mining at, to keep reruns reproducible."`
}

func (c *RunPipelineCmd) Run(ctx *context) error {
	steps := []struct {
		name string
		cmd  interface{ Run(*context) error }
	}{
		{"mirror sync", &MirrorSyncCmd{RemoteURL: c.RemoteURL, Branch: c.Branch, Cutoff: c.Cutoff, Retries: 3}},
		{"mine history", &MineHistoryCmd{RemoteURL: c.RemoteURL, Incremental: true}},
		{"mine features", &MineFeaturesCmd{RemoteURL: c.RemoteURL, Incremental: true, SaveEvery: 10 * time.Minute}},
		{"ignore build", &IgnoreBuildCmd{RemoteURL: c.RemoteURL, BulkRenames: 10}},
		{"blame run", &BlameRunCmd{RemoteURL: c.RemoteURL, MaxDepth: 50, MaxFiles: 50, MaxUnattributable: 0.2}},
		{"dataset assemble", &DatasetAssembleCmd{RemoteURL: c.RemoteURL, Labels: c.Labels, Ratio: 1, WindowDays: 60, KeepWeak: true, Seed: 42}},
	}

	for _, step := range steps {
		ctx.ws.Console().Printf("Running %v\n", step.name)

		err := step.cmd.Run(ctx)
		if err != nil {
			return errors.Wrapf(err, "%v failed", step.name)
		}
	}

	return nil
}

type RunGitCmd struct {
	Args []string `arg:"" passthrough:"" help:"Arguments to pass to git command. This requires git to be in path."`
}

func (c *RunGitCmd) Run(ctx *context) error {
	return ctx.ws.RunGit(c.Args...)
}
