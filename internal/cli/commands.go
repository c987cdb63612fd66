package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-oss/mnemo/internal/command"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
)

// The CLI mirrors the chat command surface, so each command routes
// through the same code path the chat router uses where that exists.

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show memory counts, token estimate, and health",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		fmt.Println(command.New(eng).Route("/memory status", "cli"))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [n]",
	Short: "List top entries by importance",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		line := "/memory list"
		if len(args) == 1 {
			line += " " + args[0]
		}
		fmt.Println(command.New(eng).Route(line, "cli"))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search project memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		archived, _ := cmd.Flags().GetBool("archived")
		query := strings.Join(args, " ")

		if archived {
			hits, err := eng.SearchArchive(query, 20)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No archived matches.")
				return nil
			}
			for _, h := range hits {
				fmt.Printf("%s  [%s] evicted %s (%s): %s\n",
					h.EntryID, h.Category, h.EvictedAt.Format("2006-01-02"), h.Reason, h.Content)
			}
			return nil
		}

		res := eng.Retrieve(query, "cli", retrieve.Options{})
		if len(res.Pinned) == 0 && len(res.Entries) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, e := range res.Pinned {
			fmt.Printf("pinned  [%s] %s\n", e.Category, e.Content)
		}
		for _, s := range res.Entries {
			fmt.Printf("%.3f   [%s] %s\n", s.Score, s.Entry.Category, s.Entry.Content)
		}
		return nil
	},
}

var rememberCmd = &cobra.Command{
	Use:   "remember <text>",
	Short: "Save a fact to project memory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		category, _ := cmd.Flags().GetString("category")
		pin, _ := cmd.Flags().GetBool("pin")

		id, err := eng.Remember(strings.Join(args, " "), memory.Category(category), "cli", pin)
		if err != nil {
			return err
		}
		fmt.Println("Remembered:", id)
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <entry-id>",
	Short: "Suppress a memory entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Forget(args[0], memory.ActorUser); err != nil {
			return err
		}
		fmt.Println("Forgotten:", args[0])
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <entry-id>",
	Short: "Pin an entry so it is always injected and never evicted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Pin(args[0]); err != nil {
			return err
		}
		fmt.Println("Pinned:", args[0])
		return nil
	},
}

var budgetCmd = &cobra.Command{
	Use:   "budget <remaining-context-tokens>",
	Short: "Show the four-way token split for a context size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remaining, err := strconv.Atoi(args[0])
		if err != nil || remaining < 0 {
			return fmt.Errorf("remaining context must be a non-negative integer")
		}
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		a := eng.AllocateBudget(remaining)
		fmt.Printf("total=%d always=%d bridge=%d retrieval=%d summary=%d\n",
			a.Total, a.AlwaysInject, a.ContextBridge, a.Retrieval, a.SessionSummary)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config [preset]",
	Short: "Show or switch the tuning preset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		line := "/memory config"
		if len(args) == 1 {
			line += " " + args[0]
		}
		fmt.Println(command.New(eng).Route(line, "cli"))
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Run decay and eviction now instead of waiting for the next trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		evicted, err := eng.Compact()
		if err != nil {
			return err
		}
		if evicted == 0 {
			fmt.Println("Nothing to evict.")
			return nil
		}
		fmt.Printf("Evicted %d entries.\n", evicted)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit [n]",
	Short: "Show recent mutation history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		n := 20
		if len(args) == 1 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		for _, ev := range eng.AuditTrail(n) {
			fmt.Printf("%s  %-20s %-10s %s %s\n",
				ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Action, ev.Source, ev.EntryID, ev.Detail)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Bool("archived", false, "search the cold archive of evicted entries")
	rememberCmd.Flags().String("category", "discovery", "entry category")
	rememberCmd.Flags().Bool("pin", false, "pin the entry")
}
