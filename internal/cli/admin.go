package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"contest-service/internal/domain"
	"contest-service/internal/roster"
	"github.com/spf13/cobra"
)

// NewAccessCmd opens or closes a round gate.
func NewAccessCmd(configPath *string) *cobra.Command {
	var (
		round   int
		enable  bool
		adminID string
	)
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Open or close a round for participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildPersistentStack(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()
			access, err := st.service.SetRoundAccess(cmd.Context(), domain.Round(round), enable, adminID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "round %d enabled=%v\n", access.Round, access.Enabled)
			return nil
		},
	}
	cmd.Flags().IntVar(&round, "round", 1, "round number (1-3)")
	cmd.Flags().BoolVar(&enable, "enable", false, "open the round; omit to close it")
	cmd.Flags().StringVar(&adminID, "admin", "", "administrator participant id")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

// NewPromoteCmd advances the top of a leaderboard to the next round.
func NewPromoteCmd(configPath *string) *cobra.Command {
	var (
		round   int
		n       int
		adminID string
	)
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote the top N of a round's leaderboard to the next round",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildPersistentStack(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()
			updated, err := st.service.PromoteTopN(cmd.Context(), adminID, domain.Round(round), n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total_updated=%d\n", updated)
			return nil
		},
	}
	cmd.Flags().IntVar(&round, "round", 2, "leaderboard round to promote from (1 or 2)")
	cmd.Flags().IntVar(&n, "n", 20, "number of participants to promote")
	cmd.Flags().StringVar(&adminID, "admin", "", "administrator participant id")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

// NewRosterCmd groups participant roster operations.
func NewRosterCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the participant roster",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Register participants from an XLSX roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := buildPersistentStack(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()
			report, err := roster.Import(cmd.Context(), st.service, f)
			if err != nil {
				return err
			}
			for _, p := range report.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tadmin=%v\n", p.ID, p.Username, p.IsAdmin)
			}
			return nil
		},
	})
	return cmd
}

// NewLeaderboardCmd groups leaderboard operations.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var (
		round int
		out   string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a round's leaderboard to an XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := buildPersistentStack(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()
			board, err := st.service.Leaderboard(cmd.Context(), domain.Round(round))
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("leaderboard-round%d.xlsx", round)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := roster.WriteLeaderboard(f, board); err != nil {
				return err
			}
			log.Printf("wrote %d leaderboard entries to %s", len(board.Entries), out)
			return nil
		},
	}
	export.Flags().IntVar(&round, "round", 1, "round number (1-3)")
	export.Flags().StringVar(&out, "out", "", "output file")

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Leaderboard reports",
	}
	cmd.AddCommand(export)
	return cmd
}

// NewQuestionsCmd loads question content into Postgres.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage question content",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.json>",
		Short: "Store question sets from a JSON array of {round, variant, questions}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var sets []domain.QuestionSet
			if err := json.Unmarshal(data, &sets); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			st, err := buildPersistentStack(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()
			for _, set := range sets {
				if !set.Round.Valid() {
					return fmt.Errorf("round %d: %w", set.Round, domain.ErrInvalidRound)
				}
				if err := st.loader.SaveQuestions(cmd.Context(), set); err != nil {
					return err
				}
				if st.cache != nil {
					if err := st.cache.Invalidate(cmd.Context(), set.Round, set.Variant); err != nil {
						log.Printf("invalidate cached questions: %v", err)
					}
				}
				log.Printf("stored %d questions for round %d %q", len(set.Questions), set.Round, set.Variant)
			}
			return nil
		},
	})
	return cmd
}
