package main

import (
	gocontext "context"

	"github.com/relman/regminer/lib/mirror"
)

type MirrorSyncCmd struct {
	RemoteURL string `arg:"" help:"Remote repository to mirror."`
	RootDir   string `help:"Directory to store mirrors. Default is inside the workspace." type:"path"`
	Branch    string `help:"Branch to mine. Default is the remote HEAD."`
	Cutoff    string `help:"Revision to stop mining at, to keep reruns reproducible."`
	Retries   int    `default:"3" help:"Network retries before giving up."`
}

func (c *MirrorSyncCmd) Run(ctx *context) error {
	retry := mirror.DefaultRetryPolicy()
	retry.MaxAttempts = c.Retries

	m, err := ctx.ws.SyncMirror(gocontext.Background(), c.RemoteURL, c.RootDir, &mirror.SyncOptions{
		Branch:         c.Branch,
		CutoffRevision: c.Cutoff,
		Retry:          retry,
	})
	if err != nil {
		return err
	}

	if m.Stale {
		ctx.ws.Console().Warnf("Mirror %v is stale: using data from %v\n", m.Name, m.LastSynced)
	}

	return ctx.ws.Write()
}
