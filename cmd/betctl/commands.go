// cmd/betctl/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jason-s-yu/pokerbets/internal/address"
	"github.com/jason-s-yu/pokerbets/internal/config"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
	"github.com/jason-s-yu/pokerbets/internal/models"
	"github.com/jason-s-yu/pokerbets/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries the flags shared by every command and the ledger they open.
type app struct {
	dataDir  string
	decimals int32
	as       string
	open     func(dir string) (store.Store, error)

	st     store.Store
	ledger *ledger.Ledger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(func(dir string) (store.Store, error) {
		return store.OpenLevelDB(dir)
	})
}

func newRootCmdWith(open func(dir string) (store.Store, error)) *cobra.Command {
	a := &app{open: open}
	cfg := config.Default()
	if loaded, err := config.Load(); err == nil {
		cfg = loaded
	}

	root := &cobra.Command{
		Use:           "betctl",
		Short:         "Operate a pokerbets ledger stored in LevelDB",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open(a.dataDir)
			if err != nil {
				return err
			}
			log := logrus.New()
			log.SetOutput(io.Discard)
			a.st = st
			a.ledger = ledger.New(st, cfg.LedgerOptions(), ledger.WithLogger(log))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.st != nil {
				return a.st.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data", cfg.Store.LevelDBPath, "ledger directory")
	root.PersistentFlags().Int32Var(&a.decimals, "decimals", models.DefaultDecimals, "decimal places of displayed amounts")
	root.PersistentFlags().StringVar(&a.as, "as", "", "address (or seed:NAME) to act as")

	root.AddCommand(a.fundCmd(), a.balanceCmd(), a.lobbyCmd(), a.betCmd())
	return root
}

// resolve accepts an address or "seed:NAME", which derives an address from
// NAME the way dev tokens do.
func resolve(s string) (address.Address, error) {
	if seed, ok := strings.CutPrefix(s, "seed:"); ok {
		return address.FromPubKey([]byte(seed)), nil
	}
	return address.Parse(s)
}

func (a *app) caller() (ledger.Caller, error) {
	if a.as == "" {
		return ledger.Caller{}, fmt.Errorf("--as is required")
	}
	addr, err := resolve(a.as)
	if err != nil {
		return ledger.Caller{}, err
	}
	custody, err := a.ledger.IsCustody(context.Background(), addr)
	if err != nil {
		return ledger.Caller{}, err
	}
	if custody {
		return ledger.Caller{}, fmt.Errorf("%w: %s is a lobby escrow", ledger.ErrUnauthorized, addr)
	}
	return ledger.Signer(addr), nil
}

func (a *app) amount(s string) (uint64, error) {
	return models.ParseAmount(s, a.decimals)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) fundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fund ADDRESS AMOUNT",
		Short: "Credit an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := resolve(args[0])
			if err != nil {
				return err
			}
			amt, err := a.amount(args[1])
			if err != nil {
				return err
			}
			bal, err := a.ledger.Fund(context.Background(), addr, amt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", addr, models.FormatAmount(bal, a.decimals))
			return nil
		},
	}
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance ADDRESS",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := resolve(args[0])
			if err != nil {
				return err
			}
			bal, err := a.ledger.Balance(context.Background(), addr)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", addr, models.FormatAmount(bal, a.decimals))
			return nil
		},
	}
}

func (a *app) lobbyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "lobby", Short: "Create and manage lobbies"}

	var (
		names []string
		rules models.TableRules
	)
	create := &cobra.Command{
		Use:   "create GAME_ID",
		Short: "Open a lobby owned by --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			lob, err := a.ledger.CreateLobby(context.Background(), caller, ledger.LobbyParams{
				GameID:     args[0],
				ModelNames: names,
				TableRules: rules,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, lob)
		},
	}
	create.Flags().StringSliceVar(&names, "models", nil, "comma-separated outcome names")
	create.Flags().Uint64Var(&rules.StartingChips, "starting-chips", 0, "starting stack")
	create.Flags().Uint64Var(&rules.SmallBlind, "small-blind", 0, "small blind")
	create.Flags().Uint64Var(&rules.BigBlind, "big-blind", 0, "big blind")
	create.Flags().Uint64Var(&rules.MaxHands, "max-hands", 0, "hand cap (0 = none)")

	show := &cobra.Command{
		Use:   "show GAME_ID",
		Short: "Print a lobby and its bets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lob, err := a.ledger.LobbyByGameID(ctx, args[0])
			if err != nil {
				return err
			}
			bets, err := a.ledger.Bets(ctx, address.Address(lob.Address))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{"lobby": lob, "bets": bets})
		},
	}

	status := &cobra.Command{
		Use:   "status GAME_ID waiting|running|finished",
		Short: "Change a lobby's status (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			lob, err := a.ledger.UpdateLobbyStatus(context.Background(), caller, address.Lobby(args[0]), models.LobbyStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", lob.GameID, lob.Status)
			return nil
		},
	}

	audit := &cobra.Command{
		Use:   "audit GAME_ID",
		Short: "Reconcile a lobby against its bets and escrow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.ledger.Audit(context.Background(), address.Lobby(args[0]))
			if rep != nil {
				if perr := printJSON(cmd, rep); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.AddCommand(create, show, status, audit)
	return cmd
}

func (a *app) betCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "bet", Short: "Place and settle bets"}

	place := &cobra.Command{
		Use:   "place GAME_ID PLAYER AMOUNT",
		Short: "Bet AMOUNT from --as on PLAYER",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			amt, err := a.amount(args[2])
			if err != nil {
				return err
			}
			bet, err := a.ledger.PlaceBet(context.Background(), caller, address.Lobby(args[0]), args[1], amt)
			if err != nil {
				return err
			}
			return printJSON(cmd, bet)
		},
	}

	settle := &cobra.Command{
		Use:   "settle GAME_ID BETTOR WINNER",
		Short: "Pay BETTOR's winning bet (owner only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := a.caller()
			if err != nil {
				return err
			}
			bettor, err := resolve(args[1])
			if err != nil {
				return err
			}
			lobby := address.Lobby(args[0])
			bet, err := a.ledger.DistributeSingleWinning(context.Background(), caller, lobby, address.Bet(lobby, bettor), bettor, args[2])
			if err != nil {
				return err
			}
			return printJSON(cmd, bet)
		},
	}

	cmd.AddCommand(place, settle)
	return cmd
}
