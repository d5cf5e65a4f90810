package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"mental-gin-backend/internal/bot"
	"mental-gin-backend/internal/cards"
	"mental-gin-backend/internal/elgamal"
	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/shuffle"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ginsim",
		Short:         "Two-party gin rummy over a mental-poker deck",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlayCmd(), newShuffleCmd())
	return root
}

type playFlags struct {
	games     int
	rounds    int
	keyBits   int
	target    int
	maxRounds int
	autoKnock bool
}

func newPlayCmd() *cobra.Command {
	var f playFlags

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Let two bots play full games",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(f)
		},
	}

	cmd.Flags().IntVarP(&f.games, "games", "n", 1, "number of games to play")
	cmd.Flags().IntVar(&f.rounds, "shuffle-rounds", shuffle.DefaultRounds, "cut-and-choose rounds per player")
	cmd.Flags().IntVar(&f.keyBits, "key-bits", elgamal.MinBits, "ElGamal modulus size")
	cmd.Flags().IntVar(&f.target, "target", game.DefaultTargetScore, "score that ends a game")
	cmd.Flags().IntVar(&f.maxRounds, "max-rounds", 50, "give up on a game after this many deals")
	cmd.Flags().BoolVar(&f.autoKnock, "auto-knock", false, "end rounds as soon as a hand can knock")
	return cmd
}

func runPlay(f playFlags) error {
	opts := game.Options{
		Rounds:      f.rounds,
		KeyBits:     f.keyBits,
		TargetScore: f.target,
		AutoKnock:   f.autoKnock,
	}

	wins := map[game.PlayerID]int{}
	for n := 1; n <= f.games; n++ {
		spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Game %d: generating keys and shuffling...", n))
		start := time.Now()

		g, err := game.New(opts)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		results, over, err := bot.PlayGame(g, f.maxRounds)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success(fmt.Sprintf("Game %d finished in %s", n, time.Since(start).Round(time.Millisecond)))

		if err := roundTable(results).Render(); err != nil {
			return err
		}
		if over == nil {
			pterm.Warning.Printfln("No winner after %d deals", f.maxRounds)
			continue
		}
		wins[over.Winner]++
		pterm.DefaultBox.
			WithTitle(pterm.LightGreen("|GAME OVER|")).
			WithTitleTopCenter().
			WithHorizontalPadding(4).
			Println(pterm.Sprintf("%s wins with %d points", pterm.LightCyan(string(over.Winner)), over.Score))
	}

	if f.games > 1 {
		pterm.Info.Printfln("player1 %d - %d player2", wins[game.Player1], wins[game.Player2])
	}
	return nil
}

func roundTable(results []*game.RoundResult) *pterm.TablePrinter {
	data := pterm.TableData{{"Round", "Winner", "Reason", "Points", "Knocker DW", "Defender DW", "Melds"}}
	for _, r := range results {
		data = append(data, []string{
			strconv.Itoa(r.Round),
			string(r.Winner),
			string(r.Reason),
			strconv.Itoa(r.Points),
			strconv.Itoa(r.KnockerDeadwood),
			strconv.Itoa(r.DefenderDeadwood),
			strconv.Itoa(len(r.Melds)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data)
}

func newShuffleCmd() *cobra.Command {
	var rounds int
	var parties []string

	cmd := &cobra.Command{
		Use:   "shuffle",
		Short: "Run the cut-and-choose shuffle over a fresh deck and print the transcripts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deck := make([]int, cards.DeckSize)
			for i := range deck {
				deck[i] = i + 1
			}

			spinner, _ := pterm.DefaultSpinner.Start("Shuffling...")
			order, transcripts, err := shuffle.Run(deck, rounds, parties)
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success("Every round verified")

			data := pterm.TableData{{"Party", "Rounds", "b=0", "b=1", "Final"}}
			for _, t := range transcripts {
				data = append(data, []string{t.Party, strconv.Itoa(t.Rounds), strconv.Itoa(t.Zeros), strconv.Itoa(t.Ones), t.Final})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}

			top := make([]string, 0, game.HandSize)
			for _, v := range order[:game.HandSize] {
				top = append(top, cards.Card(v).String())
			}
			pterm.Info.Printfln("Top of deck: %v", top)
			return nil
		},
	}

	cmd.Flags().IntVarP(&rounds, "rounds", "r", shuffle.DefaultRounds, "cut-and-choose rounds per party")
	cmd.Flags().StringSliceVar(&parties, "parties", []string{"player1", "player2"}, "names of the shuffling parties")
	return cmd
}
