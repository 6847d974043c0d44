package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coinwatch/newsrag/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize newsrag configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure newsrag and generates a .newsrag.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
