package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/egaotan/solana-gold/app"
	"github.com/egaotan/solana-gold/config"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/utils"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func serveCmd(flags *rootFlags) *cobra.Command {
	var logDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the http api with background refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			if logDir != "" {
				logger = utils.NewLog(logDir, config.AppLog)
			}
			a, err := app.NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			a.Service()
			return nil
		},
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "", "write json logs to <dir>/"+config.AppLog+".log instead of stderr")
	return cmd
}

func stateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the protocol state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			state, err := a.Orchestrator().Synchronizer().LoadProtocolState(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	}
}

func balancesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print sol, usdc and gold balances of the configured wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := a.Connect(cmd.Context()); err != nil {
				return err
			}
			owner, ok := a.Orchestrator().Owner()
			if !ok {
				return fmt.Errorf("no wallet configured")
			}
			balances, err := a.Orchestrator().Synchronizer().LoadBalances(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balances)
		},
	}
}

func addressesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "addresses",
		Short: "Print the derived program addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			addr := a.Program().Addresses()
			out := map[string]string{
				"program_id": addr.ProgramID().String(),
				"gold_mint":  addr.GoldMint().String(),
				"usdc_mint":  addr.UsdcMint().String(),
			}
			for name, derive := range map[string]func() (string, error){
				"state":       stringOf(addr.StateAddress),
				"vault_token": stringOf(addr.VaultTokenAccount),
				"vault_usdc":  stringOf(addr.VaultUsdcAccount),
				"price_feed":  stringOf(addr.PriceFeedAddress),
			} {
				value, err := derive()
				if err != nil {
					return err
				}
				out[name] = value
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

type operationDef struct {
	use   string
	short string
	op    gold.Operation
	bind  func(args []string) gold.Inputs
}

var operationCmds = []operationDef{
	{"initialize <oracle-authority> <custody-provider>", "Create the protocol state", gold.OpInitialize,
		func(args []string) gold.Inputs {
			return gold.Inputs{OracleAuthority: args[0], CustodyProvider: args[1]}
		}},
	{"update-price", "Pull the oracle price into the protocol state", gold.OpUpdatePrice,
		func(args []string) gold.Inputs { return gold.Inputs{} }},
	{"mint <amount> <custody-receipt>", "Mint gold tokens against a custody receipt", gold.OpMint,
		func(args []string) gold.Inputs { return gold.Inputs{Amount: args[0], CustodyReceipt: args[1]} }},
	{"buy <usdc-amount>", "Buy gold tokens with usdc", gold.OpBuy,
		func(args []string) gold.Inputs { return gold.Inputs{Amount: args[0]} }},
	{"sell <gold-amount>", "Sell gold tokens for usdc", gold.OpSell,
		func(args []string) gold.Inputs { return gold.Inputs{Amount: args[0]} }},
	{"redeem <gold-amount> <shipping-address>", "Redeem gold tokens for physical delivery", gold.OpRedeem,
		func(args []string) gold.Inputs { return gold.Inputs{Amount: args[0], ShippingAddress: args[1]} }},
}

func operationCmd(flags *rootFlags, def operationDef) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   def.use,
		Short: def.short,
		Args:  cobra.ExactArgs(strings.Count(def.use, "<")),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if !yes {
				a.SetApprover(confirm(cmd.InOrStdin(), cmd.OutOrStdout()))
			}
			if err := a.Connect(cmd.Context()); err != nil {
				return err
			}
			status, err := a.Orchestrator().Execute(cmd.Context(), def.op, def.bind(args))
			if perr := printJSON(cmd.OutOrStdout(), status); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "sign without asking")
	return cmd
}

func stringOf(derive func() (solana.PublicKey, error)) func() (string, error) {
	return func() (string, error) {
		key, err := derive()
		if err != nil {
			return "", err
		}
		return key.String(), nil
	}
}

func confirm(in io.Reader, out io.Writer) func(req *gold.Request) bool {
	reader := bufio.NewReader(in)
	return func(req *gold.Request) bool {
		fmt.Fprintf(out, "sign %s as %s? [y/N] ", req.Operation, req.Signer)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
