package main

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/relman/regminer/lib/mining"
)

type MineHistoryCmd struct {
	RemoteURL   string `arg:"" help:"Remote repository to mine. Must be mirrored first."`
	Incremental bool   `default:"true" negatable:"" help:"Don't mine commits already mined."`
	MaxCommits  int    `help:"Stop after this many commits."`
	After       string `help:"Only mine commits after this date (2006-01-02)."`
	Before      string `help:"Only mine commits before this date (2006-01-02)."`
}

func (c *MineHistoryCmd) Run(ctx *context) error {
	handle, err := ctx.ws.OpenMirror(c.RemoteURL)
	if err != nil {
		return err
	}

	after, err := parseDate(c.After)
	if err != nil {
		return err
	}
	before, err := parseDate(c.Before)
	if err != nil {
		return err
	}

	mined, err := ctx.ws.MineHistory(handle, &mining.HistoryOptions{
		Incremental: c.Incremental,
		MaxCommits:  toOption(c.MaxCommits),
		After:       after,
		Before:      before,
	})
	if err != nil {
		return err
	}

	ctx.ws.Console().Printf("Mined %v %v\n", humanize.Comma(int64(mined)), plural("commit", mined))

	return ctx.ws.Write()
}

type MineFeaturesCmd struct {
	RemoteURL   string        `arg:"" help:"Remote repository to extract features from."`
	Incremental bool          `default:"true" negatable:"" help:"Don't extract commits already extracted."`
	SaveEvery   time.Duration `default:"10m" help:"Save results while processing to avoid losing work."`
}

func (c *MineFeaturesCmd) Run(ctx *context) error {
	handle, err := ctx.ws.OpenMirror(c.RemoteURL)
	if err != nil {
		return err
	}

	err = ctx.ws.MineFeatures(handle, &mining.FeatureOptions{
		Incremental: c.Incremental,
		SaveEvery:   toOption(c.SaveEvery),
	})
	if err != nil {
		return err
	}

	return ctx.ws.Write()
}
