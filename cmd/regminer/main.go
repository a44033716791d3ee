package main

import (
	"github.com/alecthomas/kong"

	"github.com/relman/regminer/lib/workspace"
)

var cli struct {
	Workspace string `short:"w" help:"Workspace to store data. Default is ./.regminer or ~/.regminer if that does not exist." type:"path"`

	Mirror struct {
		Sync MirrorSyncCmd `cmd:"" help:"Clone or update the local mirror of a repository."`
	} `cmd:""`

	Mine struct {
		History  MineHistoryCmd  `cmd:"" help:"Mine commit metadata and parent links from a mirror."`
		Features MineFeaturesCmd `cmd:"" help:"Extract per-commit features from a mirror."`
	} `cmd:""`

	Ignore struct {
		Build IgnoreBuildCmd `cmd:"" help:"Classify noise commits into the ignore list."`
	} `cmd:""`

	Blame struct {
		Run BlameRunCmd `cmd:"" help:"Walk fix commits back to the commits that introduced the fixed lines."`
	} `cmd:""`

	Dataset struct {
		Assemble DatasetAssembleCmd `cmd:"" help:"Join bug labels and blame results into a labeled dataset."`
	} `cmd:""`

	Run RunPipelineCmd `cmd:"" help:"Run the whole pipeline, from mirror sync to dataset assembly."`

	Git RunGitCmd `cmd:"" help:"Run a git command on all mirrors."`

	Config struct {
		Set ConfigSetCmd `cmd:"" help:"Set configuration parameters."`
	} `cmd:""`
}

type context struct {
	ws *workspace.Workspace
}

func main() {
	ctx := kong.Parse(&cli, kong.ShortUsageOnError())

	ws, err := workspace.NewWorkspace(cli.Workspace)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&context{
		ws: ws,
	})
	ctx.FatalIfErrorf(err)
}
