package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagecouncil/council/cmd/council/internal/config"
	"github.com/sagecouncil/council/pkg/kv"
	"github.com/sagecouncil/council/pkg/sage"
	"github.com/sagecouncil/council/pkg/seeker"
)

// openCache opens the CLI's local consultation cache under the config dir.
func openCache(cfg *config.Config) (kv.Store, error) {
	return kv.NewBadger(kv.BadgerOptions{Dir: filepath.Join(cfg.Dir, "cache")})
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past consultations from the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		sessionID := cfg.SessionID()
		if sessionID == "" {
			return fmt.Errorf("no session yet; ask a question first")
		}
		db, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		hist, err := seeker.NewCache(db).Consultations(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			fmt.Println(sageTitleStyle.Render("No consultations recorded."))
			return nil
		}
		registry := sage.Default()
		for _, cons := range hist {
			fmt.Println(creditStyle.Render("Q: " + cons.Question))
			fmt.Println()
			printed := map[string]bool{}
			printSettled(registry, cons, printed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
