package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"amm-swap/config"
	"amm-swap/pkg/amm"
	"amm-swap/pkg/parser"
	"amm-swap/pkg/swap"
	"amm-swap/pkg/token"
	"amm-swap/pkg/types"
	"amm-swap/pkg/util"
	"amm-swap/pkg/wallet"
)

var (
	swapSlippage float64
	swapDeadline int
	noConfirm    bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from-token> to <to-token>",
	Short: "Perform a slippage-protected swap against the pool",
	Long: `Quote the trade, compute the minimum acceptable output at your slippage
tolerance, submit the swap through your wallet, and track it to confirmation.

Requires a configured private key (AMM_SWAP_PRIVATE_KEY or private_key in
.amm-swap.yaml). The on-chain swap reverts if the realized output falls below
the protected minimum.

Examples:
  amm-swap swap 2.5 WETH to USDC
  amm-swap swap 100 USDC to WETH --slippage 1.0 --deadline 10
  amm-swap swap 1 WETH to DAI --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Float64Var(&swapSlippage, "slippage", 0, "Slippage tolerance in percent (default from config)")
	swapCmd.Flags().IntVar(&swapDeadline, "deadline", 0, "Confirmation deadline in minutes (default from config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Parse the command
	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if swapSlippage > 0 {
		cfg.SlippagePercent = swapSlippage
	}
	if swapDeadline > 0 {
		cfg.DeadlineMinutes = swapDeadline
	}

	ctx := context.Background()
	log := util.NewLogger(cfg.LogLevel)

	// Wire the orchestrator
	contract, err := amm.Dial(cfg.RPCURL, cfg.AMMAddress)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer contract.Close()

	provider, err := wallet.NewKeyProvider(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer provider.Close()

	catalog := token.NewCatalog(cfg.TokenListURL, cfg.ChainID, cfg.MaxTokens)
	orch := swap.NewOrchestrator(
		catalog,
		wallet.NewConnector(provider),
		swap.NewFetcher(contract, log),
		swap.NewExecutor(contract, log),
		log,
	)
	orch.Start(ctx)

	// Fetch quote with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quote, snapshot, err := prepareSwap(ctx, orch, cfg, swapReq)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	from, to := snapshot.Parameters.From, snapshot.Parameters.To
	display := types.QuoteDisplay{
		AmountIn:   token.FormatAmount(quote.AmountIn, from.Decimals),
		FromSymbol: from.Symbol,
		AmountOut:  token.FormatAmount(quote.AmountOut, to.Decimals),
		ToSymbol:   to.Symbol,
		MinimumOut: token.FormatAmount(snapshot.MinimumOut, to.Decimals),
		Slippage:   fmt.Sprintf("%.2f%%", cfg.SlippagePercent),
	}

	if verbose {
		fmt.Printf("\nDebug: direction flag and raw amounts\n")
		fmt.Printf("  amount_in_raw:   %s\n", quote.AmountIn.String())
		fmt.Printf("  amount_out_raw:  %s\n", quote.AmountOut.String())
		fmt.Printf("  minimum_out_raw: %s\n", snapshot.MinimumOut.String())
	}

	if !jsonOutput {
		displayQuoteDetails(display)

		// Ask for confirmation
		if !noConfirm && !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	// Submit the swap
	if !jsonOutput {
		s.Suffix = " Submitting swap..."
		s.Start()
	}

	tx, err := orch.Swap(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		color.Green("\n✓ Swap submitted!")
		fmt.Printf("  Transaction: %s\n", color.CyanString(tx.Hash().Hex()))
		s.Suffix = " Waiting for confirmation..."
		s.Start()
	}

	// Track the transaction to its terminal state
	deadline := time.Duration(cfg.DeadlineMinutes) * time.Minute
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	status, waitErr := tx.Wait(waitCtx)
	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash":     tx.Hash().Hex(),
			"status":      status.String(),
			"amount_in":   display.AmountIn,
			"from_token":  display.FromSymbol,
			"amount_out":  display.AmountOut,
			"to_token":    display.ToSymbol,
			"minimum_out": display.MinimumOut,
		}
		if waitErr != nil {
			output["error"] = waitErr.Error()
		} else if txErr := tx.Err(); txErr != nil {
			output["error"] = txErr.Error()
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	switch {
	case waitErr != nil:
		color.Yellow("\nStill pending after %s. Check later with:", deadline)
		color.Cyan("  amm-swap status %s\n", tx.Hash().Hex())
	case status == swap.StatusConfirmed:
		printSuccess(color.GreenString("✓ Swap confirmed! Received at least %s %s", display.MinimumOut, display.ToSymbol))
	default:
		color.Red("\n✗ Swap failed: %v", tx.Err())
		fmt.Println("The pool reverts when the realized output falls below the protected minimum.")
	}
}

// prepareSwap loads the catalog, applies the command parameters, and waits
// for a fresh quote.
func prepareSwap(ctx context.Context, orch *swap.Orchestrator, cfg *config.Config, req *types.SwapRequest) (swap.Quote, swap.Snapshot, error) {
	if _, err := orch.LoadTokens(ctx); err != nil {
		return swap.Quote{}, swap.Snapshot{}, err
	}

	from, to, err := resolvePairFromOrchestrator(orch, req)
	if err != nil {
		return swap.Quote{}, swap.Snapshot{}, err
	}

	if _, err := orch.Connect(ctx); err != nil {
		return swap.Quote{}, swap.Snapshot{}, err
	}

	orch.SetSlippagePercent(cfg.SlippagePercent)
	orch.SetDeadlineMinutes(cfg.DeadlineMinutes)
	orch.SetFromToken(from)
	orch.SetToToken(to)
	orch.SetAmountText(req.Amount)

	quoteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	quote, err := orch.AwaitQuote(quoteCtx)
	if err != nil {
		return swap.Quote{}, swap.Snapshot{}, err
	}

	snapshot := orch.Snapshot()
	if !snapshot.CanSwap {
		return swap.Quote{}, swap.Snapshot{}, fmt.Errorf("cannot swap: %s", snapshot.Reason)
	}
	return quote, snapshot, nil
}

func resolvePairFromOrchestrator(orch *swap.Orchestrator, req *types.SwapRequest) (token.Token, token.Token, error) {
	catalog := orch.Catalog()

	from, err := catalog.FindBySymbol(req.FromSymbol)
	if err != nil {
		return token.Token{}, token.Token{}, fmt.Errorf("source token error: %w", err)
	}
	to, err := catalog.FindBySymbol(req.ToSymbol)
	if err != nil {
		return token.Token{}, token.Token{}, fmt.Errorf("destination token error: %w", err)
	}
	if from.Equal(to) {
		return token.Token{}, token.Token{}, fmt.Errorf("source and destination tokens must differ")
	}
	return from, to, nil
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
