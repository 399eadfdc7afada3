package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/config"
	"github.com/fablehouse/fable/internal/home"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a bearer token for a user",
	Long: `Issue a signed bearer token for the given user ID using the auth
secret from the config file. The token can be passed to API commands
via the FABLE_TOKEN environment variable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}

		cfgPath := cfgFile
		if cfgPath == "" {
			cfgPath = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		mgr := auth.NewManager(cfg.AuthSecret(),
			time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, nil)
		if mgr.DevMode() {
			return fmt.Errorf("no auth secret configured; dev mode uses the X-User-ID header instead")
		}

		token, err := mgr.GenerateToken(args[0])
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
