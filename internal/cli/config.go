package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/config"
)

// configCommand creates the config command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

// configShowCommand prints the effective configuration.
func (c *CLI) configShowCommand() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return config.Write(output, cfg)
		},
	}
	flags.register(cmd)

	return cmd
}

// configInitCommand writes a preset to a file.
func (c *CLI) configInitCommand() *cobra.Command {
	var (
		variant string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file for a preset",
		Long: `Write a configuration file for a preset.

The file defaults to ./` + config.FileName + `, which every command reads
when --config is not given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			return writeConfigFile(path, variant, force)
		},
	}

	cmd.Flags().StringVar(&variant, "variant", config.VariantThreshold, "preset: "+strings.Join(config.Variants, ", "))
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	_ = cmd.RegisterFlagCompletionFunc("variant", completeVariants)

	return cmd
}

func writeConfigFile(path, variant string, force bool) error {
	cfg, err := config.ForVariant(variant)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := config.Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	printSuccess("Wrote %s preset", cfg.Variant)
	printFile(path)
	return nil
}
