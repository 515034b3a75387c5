package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagecouncil/council/pkg/seeker"
)

var (
	creditsServer string
	creditsBuy    int
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show or top up the credit balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		server := cfg.ServerURL
		if creditsServer != "" {
			server = creditsServer
		}
		client := seeker.NewClient(server)
		client.SessionID = cfg.SessionID()
		balance, err := client.Open(cmd.Context())
		if err != nil {
			return fmt.Errorf("connect to %s: %w", server, err)
		}
		if err := cfg.SaveSessionID(client.SessionID); err != nil {
			return err
		}
		if creditsBuy > 0 {
			balance, err = client.Purchase(cmd.Context(), creditsBuy)
			if err != nil {
				return err
			}
			fmt.Printf("Purchased %d credits.\n", creditsBuy)
		}
		fmt.Println(creditStyle.Render(fmt.Sprintf("%d credits available", balance)))
		return nil
	},
}

func init() {
	creditsCmd.Flags().StringVar(&creditsServer, "server", "", "council server URL (overrides config)")
	creditsCmd.Flags().IntVar(&creditsBuy, "buy", 0, "purchase this many credits")
	rootCmd.AddCommand(creditsCmd)
}
