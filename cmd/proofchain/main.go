package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ldelacroix/proofchain/hashing"
	"github.com/ldelacroix/proofchain/ledger"
	"github.com/ldelacroix/proofchain/mining"
	"github.com/ldelacroix/proofchain/storage"
)

var (
	flagFile    string
	flagDB      string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "proofchain",
		Short:         "a single-node proof-of-work ledger for demonstrating tamper detection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagFile, "file", "proofchain.json", "path of the JSON snapshot file")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "directory of a badger database (overrides --file)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(showCmd(), mineCmd(), tamperCmd(), verifyCmd(), resetCmd())

	if err := root.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// openLedger wires the configured gateway, the miner and the ledger.
// The returned closer releases the gateway when it holds resources.
func openLedger(opts ...mining.Option) (*ledger.Ledger, func(), error) {
	log := newLogger()
	hash := hashing.Default()
	miner := mining.New(log, hash, opts...)

	closer := func() {}
	var gw ledger.Gateway
	if flagDB != "" {
		b, err := storage.OpenBadger(flagDB)
		if err != nil {
			return nil, nil, err
		}
		gw = b
		closer = func() { b.Close() }
	} else {
		gw = storage.NewFile(flagFile)
	}

	led, err := ledger.Open(log, hash, gw, miner)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return led, closer, nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "render the current chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			led, closer, err := openLedger()
			if err != nil {
				return err
			}
			defer closer()
			renderChain(led.Blocks())
			return nil
		},
	}
}

func mineCmd() *cobra.Command {
	var (
		data       string
		difficulty int
	)
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "mine a new block onto the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			progress := make(chan mining.Progress, 16)
			led, closer, err := openLedger(mining.WithProgress(progress))
			if err != nil {
				return err
			}
			defer closer()

			spinner, _ := pterm.DefaultSpinner.Start("searching for a nonce...")
			done := make(chan struct{})
			go func() {
				for {
					select {
					case p := <-progress:
						spinner.UpdateText(fmt.Sprintf("nonce %d  hash %s", p.Nonce, shortHash(p.Hash)))
					case <-done:
						return
					}
				}
			}()

			block, err := led.Mine(ctx, data, difficulty)
			close(done)
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("block %d mined with nonce %d", block.Index, block.Nonce))
			renderChain(led.Blocks())
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "payload of the new block")
	cmd.Flags().IntVar(&difficulty, "difficulty", 3, "required number of leading zero hex characters")
	return cmd
}

func tamperCmd() *cobra.Command {
	var (
		index uint64
		data  string
	)
	cmd := &cobra.Command{
		Use:   "tamper",
		Short: "edit a block's payload in place and watch the chain break",
		RunE: func(cmd *cobra.Command, args []string) error {
			led, closer, err := openLedger()
			if err != nil {
				return err
			}
			defer closer()

			if err := led.EditBlockData(index, data); err != nil {
				return err
			}
			pterm.Warning.Printfln("block %d edited, successors are now invalid", index)
			renderChain(led.Blocks())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&index, "index", 0, "index of the block to edit")
	cmd.Flags().StringVar(&data, "data", "", "replacement payload")
	cmd.MarkFlagRequired("data")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "report every integrity failure of the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			led, closer, err := openLedger()
			if err != nil {
				return err
			}
			defer closer()

			if err := ledger.Explain(hashing.Default(), led.Blocks()); err != nil {
				pterm.Error.Println(err)
				return nil
			}
			pterm.Success.Println("chain is intact")
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "discard the chain and start over from a fresh genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			led, closer, err := openLedger()
			if err != nil {
				return err
			}
			defer closer()

			if err := led.Reset(); err != nil {
				return err
			}
			renderChain(led.Blocks())
			return nil
		},
	}
}
