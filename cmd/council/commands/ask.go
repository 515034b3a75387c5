package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sagecouncil/council/pkg/sage"
	"github.com/sagecouncil/council/pkg/seeker"
)

var (
	askServer string
	askSages  []string

	sageNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	sageTitleStyle = lipgloss.NewStyle().Faint(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2)
	creditStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Put a question to the sages",
	Long: `Submit one question to the selected sages and print each answer.

The session id is kept in the config directory, so credits carry over
between invocations. One consultation costs one credit regardless of how
many sages are asked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "", "council server URL (overrides config)")
	askCmd.Flags().StringSliceVar(&askSages, "sages", []string{"lao-tzu", "buddha", "rumi"}, "sage ids to consult")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	server := cfg.ServerURL
	if askServer != "" {
		server = askServer
	}
	question := strings.Join(args, " ")

	ctx := cmd.Context()
	client := seeker.NewClient(server)
	defer client.Close()
	client.SessionID = cfg.SessionID()
	credits, err := client.Open(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", server, err)
	}
	if err := cfg.SaveSessionID(client.SessionID); err != nil {
		slog.Warn("could not save session id", "error", err)
	}
	if cache, err := openCache(cfg); err != nil {
		slog.Warn("local cache unavailable", "error", err)
	} else {
		defer cache.Close()
		client.Cache = seeker.NewCache(cache)
	}
	if credits == 0 {
		return fmt.Errorf("no credits left; run 'council credits --buy 10'")
	}

	fmt.Println(sageTitleStyle.Render(fmt.Sprintf("Consulting %d sages...", len(askSages))))
	fmt.Println()

	type result struct {
		cons *seeker.Consultation
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		cons, err := client.Ask(ctx, question, askSages)
		resCh <- result{cons, err}
	}()

	// Print each answer the moment its sage settles; stragglers follow.
	registry := sage.Default()
	printed := map[string]bool{}
	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if cur := client.Reducer.Current(); cur != nil {
				printSettled(registry, cur, printed)
			}
		case res := <-resCh:
			if res.err != nil {
				return res.err
			}
			printSettled(registry, res.cons, printed)
			fmt.Println(creditStyle.Render(fmt.Sprintf("%d credits remaining", client.Reducer.Credits())))
			return nil
		}
	}
}

func printSettled(registry *sage.Registry, cons *seeker.Consultation, printed map[string]bool) {
	for _, id := range cons.Sages {
		a := cons.Answers[id]
		if a == nil || a.Status != seeker.StatusSettled || printed[id] {
			continue
		}
		printed[id] = true
		name, title := id, ""
		if s := registry.Lookup(id); s != nil {
			name, title = s.Name, s.Title
		}
		header := sageNameStyle.Render(name)
		if title != "" {
			header += " " + sageTitleStyle.Render("("+title+")")
		}
		fmt.Println(header)
		fmt.Println(answerStyle.Render(a.Text))
		fmt.Println()
	}
}
