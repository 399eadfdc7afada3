package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/config"
	"github.com/fablehouse/fable/internal/home"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the fable home directory and default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgPath := cfgFile
		if cfgPath == "" {
			cfgPath = h.ConfigPath()
		}
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
		}
		if err := config.WriteDefault(cfgPath); err != nil {
			return err
		}

		fmt.Printf("Initialized %s\n", h.Path())
		fmt.Printf("Config written to %s\n", cfgPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config")
	rootCmd.AddCommand(initCmd)
}
