package main

import (
	gocontext "context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/relman/regminer/lib/blame"
	"github.com/relman/regminer/lib/model"
)

type BlameRunCmd struct {
	RemoteURL         string  `arg:"" help:"Remote repository to walk."`
	MaxDepth          int     `default:"50" help:"Maximum commits to walk back per line."`
	MaxFiles          int     `default:"50" help:"Skip fix commits touching more files than this."`
	Workers           int     `help:"Parallel walkers. Default is the number of CPUs."`
	LowConfidence     bool    `help:"Also walk commits whose bug reference is a bare leading number."`
	MaxUnattributable float64 `default:"0.2" help:"Fail when more than this fraction of walked fixes is fully unattributable."`
}

func (c *BlameRunCmd) Run(ctx *context) error {
	handle, err := ctx.ws.OpenMirror(c.RemoteURL)
	if err != nil {
		return err
	}

	fixes := ctx.ws.FixCommits(handle.Mirror, c.LowConfidence)
	if len(fixes) == 0 {
		ctx.ws.Console().Warnf("No fix commits found: mine history first\n")
		return nil
	}

	opts := blame.DefaultOptions()
	opts.MaxDepth = c.MaxDepth
	opts.MaxModifiedFiles = c.MaxFiles
	if c.Workers > 0 {
		opts.Workers = c.Workers
	}

	links, err := ctx.ws.WalkFixCommits(gocontext.Background(), handle, fixes, opts)
	if err != nil {
		return err
	}

	walked := 0
	skipped := 0
	unattributable := 0
	for _, link := range links {
		switch {
		case link.Skipped:
			skipped++
		case link.SeededLines > 0 && link.Outcomes[model.LineUnattributable] == link.SeededLines:
			unattributable++
			walked++
		default:
			walked++
		}
	}

	ctx.ws.Console().Printf("Walked %v %v (%v skipped)\n",
		humanize.Comma(int64(walked)), plural("fix commit", walked),
		humanize.Comma(int64(skipped)))

	if unattributable > 0 {
		ctx.ws.Console().Warnf("%v %v could not be attributed at all\n",
			humanize.Comma(int64(unattributable)), plural("fix commit", unattributable))
	}

	if walked > 0 && float64(unattributable)/float64(walked) > c.MaxUnattributable {
		return fmt.Errorf("%v of %v walked fix commits are unattributable: the mirror is probably broken",
			unattributable, walked)
	}

	return ctx.ws.Write()
}
