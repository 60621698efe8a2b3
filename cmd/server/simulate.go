package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"teenpatti-game/internal/config"
	"teenpatti-game/internal/game"
	"teenpatti-game/internal/settlement"
	"teenpatti-game/internal/shared"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// maxBotTurns stops a round of stubborn bots; the table goes to a showdown instead.
const maxBotTurns = 60

func newSimulateCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	var (
		rounds  int
		players int
		seed    uint64
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play bot rounds against the engine and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			if verbose {
				if logger, err = config.NewLogger(config.Log{Level: "debug", Development: true}); err != nil {
					return err
				}
			}
			if players < cfg.Game.MinPlayers || players > cfg.Game.MaxPlayers {
				return fmt.Errorf("players must be between %d and %d", cfg.Game.MinPlayers, cfg.Game.MaxPlayers)
			}

			sim := newSimulation(seed, players, cfg.Game.StartingChips, game.Config{
				MinPlayers: cfg.Game.MinPlayers,
				MaxPlayers: cfg.Game.MaxPlayers,
				MinStake:   cfg.Game.MinStake,
				Logger:     logger,
			})
			for i := 1; i <= rounds; i++ {
				res, err := sim.playRound()
				if err != nil {
					return fmt.Errorf("round %d: %w", i, err)
				}
				renderRound(i, res, cfg.Settlement.RakeBps)
				if len(sim.game.Players) < sim.game.MinPlayers {
					pterm.Warning.Println("Not enough players with chips left, stopping.")
					break
				}
			}
			renderStandings(sim.game)
			return nil
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 5, "rounds to play")
	cmd.Flags().IntVar(&players, "players", 4, "bots at the table")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "shuffle and bot decision seed")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log engine events")
	return cmd
}

type simulation struct {
	game *game.Game
	rng  *rand.Rand
}

// roundResult is a finished round with the hands as they were at the end of play.
type roundResult struct {
	Settlement game.Settlement
	Hands      map[string][]shared.Card
	Names      map[string]string
	Showdown   bool
}

func newSimulation(seed uint64, players int, chips int64, cfg game.Config) *simulation {
	cfg.Rand = rand.New(rand.NewPCG(seed, seed^0x5eed))
	g := game.NewGame(fmt.Sprintf("sim-%d", seed), cfg)
	for i := 0; i < players; i++ {
		id := fmt.Sprintf("bot-%d", i+1)
		_ = g.Seat(shared.NewPlayer(id, fmt.Sprintf("Bot %d", i+1), id, chips))
	}
	return &simulation{game: g, rng: rand.New(rand.NewPCG(seed+1, seed))}
}

// playRound deals and plays one round to completion, then drops busted bots.
func (s *simulation) playRound() (roundResult, error) {
	g := s.game
	if err := g.Start(); err != nil {
		return roundResult{}, err
	}
	res := roundResult{Hands: make(map[string][]shared.Card), Names: make(map[string]string)}
	for _, p := range g.Players {
		res.Hands[p.ID], _ = g.Hand(p.ID)
		res.Names[p.ID] = p.Name
	}

	for {
		if winner, decided := g.CheckWinner(); decided {
			st, err := g.EndRound(winner)
			res.Settlement = st
			return res, s.dropBusted(err)
		}
		if (len(g.ActivePlayers()) == 2 && g.RoundCounter >= len(g.Players)) || g.RoundCounter >= maxBotTurns {
			return s.showdown(res)
		}
		if err := s.botTurn(g.CurrentPlayer()); err != nil {
			return res, err
		}
	}
}

func (s *simulation) botTurn(p *shared.Player) error {
	g := s.game
	if p.Blind && s.rng.IntN(3) == 0 {
		_, err := g.PlayerAction(p.ID, game.See())
		return err
	}
	if p.Seen && weakHand(p.Hand) && s.rng.IntN(2) == 0 {
		_, err := g.PlayerAction(p.ID, game.Fold())
		return err
	}
	lo, _ := g.BetRange(p)
	if p.Chips < lo {
		_, err := g.PlayerAction(p.ID, game.Fold())
		return err
	}
	_, err := g.PlayerAction(p.ID, game.Bet(lo))
	return err
}

func (s *simulation) showdown(res roundResult) (roundResult, error) {
	g := s.game
	winners, err := g.Showdown()
	if err != nil {
		return res, err
	}
	res.Showdown = true
	if len(winners) == 1 {
		res.Settlement, err = g.EndRound(winners[0])
	} else {
		res.Settlement, err = g.SplitPot(winners)
	}
	return res, s.dropBusted(err)
}

func (s *simulation) dropBusted(err error) error {
	if err != nil {
		return err
	}
	for _, p := range append([]*shared.Player(nil), s.game.Players...) {
		if p.Chips < s.game.MinStake {
			s.game.Unseat(p.ID)
		}
	}
	return nil
}

// weakHand is a high card below a queen.
func weakHand(hand []shared.Card) bool {
	key, err := shared.EvaluateHand(hand)
	if err != nil {
		return true
	}
	return key.Category == shared.HighCard && key.Values[0] < int(shared.Queen)
}

func renderRound(n int, res roundResult, rakeBps uint32) {
	pterm.DefaultSection.Printfln("Round %d", n)

	data := pterm.TableData{{"Player", "Hand", "Rank", "Chips"}}
	for _, b := range res.Settlement.Balances {
		hand, ok := res.Hands[b.PlayerID]
		if !ok {
			continue
		}
		cards := make([]string, len(hand))
		for i, c := range hand {
			cards[i] = c.String()
		}
		rank := "-"
		if key, err := shared.EvaluateHand(hand); err == nil {
			rank = key.Category.String()
		}
		data = append(data, []string{b.Name, strings.Join(cards, " "), rank, fmt.Sprint(b.Chips)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	if len(res.Settlement.WinnerIDs) == 0 {
		pterm.Info.Printfln("Everyone folded, %d refunded", res.Settlement.Pot)
		return
	}
	names := make([]string, len(res.Settlement.WinnerIDs))
	for i, id := range res.Settlement.WinnerIDs {
		names[i] = res.Names[id]
	}
	how := "last player standing"
	if res.Showdown {
		how = "showdown"
	}
	payout, err := settlement.NewPayout(res.Settlement, rakeBps)
	if err != nil {
		pterm.Error.Println(err)
		return
	}
	pterm.Success.Printfln("%s won a pot of %d by %s (payout %s, rake %s)",
		strings.Join(names, " & "), res.Settlement.Pot, how, payout.Amount, payout.Rake)
}

func renderStandings(g *game.Game) {
	pterm.DefaultSection.Println("Standings")
	data := pterm.TableData{{"Player", "Chips"}}
	for _, p := range g.Players {
		data = append(data, []string{p.Name, fmt.Sprint(p.Chips)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}
