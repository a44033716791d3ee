package main

import (
	"github.com/dustin/go-humanize"

	"github.com/relman/regminer/lib/ignorelist"
)

type IgnoreBuildCmd struct {
	RemoteURL     string   `arg:"" help:"Remote repository to classify."`
	GeneratedGlob []string `help:"Extra globs marking generated files."`
	BulkRenames   int      `default:"10" help:"Minimum renamed files for a bulk rename."`
}

func (c *IgnoreBuildCmd) Run(ctx *context) error {
	handle, err := ctx.ws.OpenMirror(c.RemoteURL)
	if err != nil {
		return err
	}

	opts := ignorelist.DefaultOptions()
	opts.GeneratedGlobs = append(opts.GeneratedGlobs, c.GeneratedGlob...)
	opts.BulkRenameThreshold = c.BulkRenames

	list, err := ctx.ws.BuildIgnoreList(handle, opts)
	if err != nil {
		return err
	}

	ctx.ws.Console().Printf("Ignore list has %v %v\n",
		humanize.Comma(int64(list.Len())), plural("commit", list.Len()))

	return ctx.ws.Write()
}
