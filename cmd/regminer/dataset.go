package main

import (
	"github.com/relman/regminer/lib/dataset"
)

type DatasetAssembleCmd struct {
	RemoteURL  string `arg:"" help:"Remote repository the regression links were walked from."`
	Labels     string `arg:"" help:"JSON file mapping bug ids to whether the bug is a genuine defect." type:"existingfile"`
	Ratio      int    `default:"1" help:"Negatives sampled per positive."`
	WindowDays int    `default:"60" help:"Leakage window in days for negative sampling."`
	KeepWeak   bool   `default:"true" negatable:"" help:"Keep multi-candidate links as weak-labeled positives."`
	Seed       int64  `default:"42" help:"Seed for negative sampling."`
}

func (c *DatasetAssembleCmd) Run(ctx *context) error {
	handle, err := ctx.ws.OpenMirror(c.RemoteURL)
	if err != nil {
		return err
	}

	_, err = ctx.ws.AssembleDataset(handle.Mirror, c.Labels, &dataset.Options{
		NegativeRatio: c.Ratio,
		WindowDays:    c.WindowDays,
		KeepWeak:      c.KeepWeak,
		Seed:          c.Seed,
	})
	if err != nil {
		return err
	}

	return ctx.ws.Write()
}
