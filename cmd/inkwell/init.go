package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/config"
	inkerrors "github.com/inkwell-dev/inkwell/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		name  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default inkwell.json",
		Long: `Create a default inkwell.json in the working directory.

Examples:
  inkwell init
  inkwell init --name=my-notebook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(name, force)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing inkwell.json")

	return cmd
}

func runInit(name string, force bool) error {
	if config.Exists(".") && !force {
		return inkerrors.Newf(inkerrors.CategoryCLI,
			"%s already exists", config.ConfigFileName).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Name = name
	path := filepath.Join(".", config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("created %s", path)
	info("edit it, then run 'inkwell serve'")
	return nil
}
