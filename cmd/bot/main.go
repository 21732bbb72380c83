package main

import (
	"github.com/go-strange/strange/internal/bootstrap"
	_ "github.com/go-strange/strange/internal/plugin/core"
	"github.com/go-strange/strange/pkg/version"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "strange-bot",
	Short:        "strange bot process",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := bootstrap.Bootstrap(configFile, initApp)
		if err != nil {
			return err
		}
		return bootstrap.Run(app, cleanup)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "conf.d/config.toml", "conf file path, e.g. --conf ./conf.d/config.toml")
	rootCmd.AddCommand(version.NewCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
