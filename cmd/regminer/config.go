package main

type ConfigSetCmd struct {
	Config string `arg:"" help:"Configuration name to change."`
	Value  string `arg:"" help:"Configuration value to set."`
}

func (c *ConfigSetCmd) Run(ctx *context) error {
	changed, err := ctx.ws.SetGlobalConfig(c.Config, c.Value)
	if err != nil {
		return err
	}

	if changed {
		ctx.ws.Console().Printf("Set '%v' = '%v'\n", c.Config, c.Value)
	}

	return nil
}
