package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/blockgrid/internal/deploy"
)

// Run executes the configured command against the project.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	p, err := a.generator.LoadProject("")
	if err != nil {
		return err
	}
	a.logger.Info("Project loaded.",
		"name", p.Settings.Name,
		"blocks", len(p.Blocks),
		"connections", len(p.Connections))

	switch a.config.Command {
	case CommandGenerateLib:
		if err := a.generator.GenerateLibrary(ctx, p, ""); err != nil {
			return fmt.Errorf("failed to generate block libraries: %w", err)
		}
	case CommandDeploy:
		env, err := deploy.LoadProjectEnv(a.store, a.config.HomeDir, p.Settings.ID)
		if err != nil {
			return fmt.Errorf("failed to load project env: %w", err)
		}
		params := deploy.Params{
			DeployDir: a.store.Join("deploy", a.config.Runtime),
			Region:    a.config.Region,
			Env:       env,
		}
		err = a.generator.Deploy(ctx, p, params, func(pr deploy.Progress) {
			fmt.Fprintf(a.outW, "[%3d%%] %s\n", pr.Percent, pr.Message)
		})
		if err != nil {
			return err
		}
	}

	a.logger.Info("Done.", "command", a.config.Command)
	return nil
}
