package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagecouncil/council/pkg/sage"
)

var sagesCmd = &cobra.Command{
	Use:   "sages",
	Short: "List the sage catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := sage.Default()
		if cfg, err := getConfig(); err == nil && cfg.Catalogue != "" {
			loaded, err := sage.Load(cfg.Catalogue)
			if err != nil {
				return err
			}
			registry = loaded
		}
		for _, s := range registry.All() {
			fmt.Printf("%s  %s %s\n",
				sageTitleStyle.Render(fmt.Sprintf("%-14s", s.ID)),
				sageNameStyle.Render(s.Name),
				sageTitleStyle.Render("- "+s.Title))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sagesCmd)
}
