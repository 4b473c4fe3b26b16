package cmd

import (
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
)

var quoteSlippage float64

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from-token> to <to-token>",
	Short: "Fetch a live exchange-rate quote from the pool",
	Long: `Ask the AMM how much output the given input amount currently buys, and
show the minimum acceptable output at your slippage tolerance.

Quoting is read-only: no wallet or private key is needed.

Examples:
  amm-swap quote 2.5 WETH to USDC
  amm-swap quote 100 USDC to WETH --slippage 1.0`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Float64Var(&quoteSlippage, "slippage", 0, "Slippage tolerance in percent (default from config)")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	swapReq, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	slippage := cfg.SlippagePercent
	if quoteSlippage > 0 {
		slippage = quoteSlippage
	}

	ctx := context.Background()
	log := util.NewLogger(cfg.LogLevel)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	catalog := token.NewCatalog(cfg.TokenListURL, cfg.ChainID, cfg.MaxTokens)
	from, to, loadErr := resolvePair(ctx, catalog, swapReq)
	if loadErr != nil {
		if !jsonOutput {
			s.Stop()
		}
		printError(loadErr)
		os.Exit(1)
	}

	contract, err := amm.Dial(cfg.RPCURL, cfg.AMMAddress)
	if err != nil {
		if !jsonOutput {
			s.Stop()
		}
		printError(err)
		os.Exit(1)
	}
	defer contract.Close()

	fetcher := swap.NewFetcher(contract, log)
	amount := token.ParseAmount(swapReq.Amount, from.Decimals)
	quote, err := fetcher.Fetch(ctx, from, to, amount)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if quote.IsZero() {
		printError(fmt.Errorf("the pool returned no output for this trade"))
		os.Exit(1)
	}

	bps := swap.ToleranceBps(slippage)
	minOut := swap.MinimumOut(quote.AmountOut, bps)

	display := types.QuoteDisplay{
		AmountIn:   token.FormatAmount(quote.AmountIn, from.Decimals),
		FromSymbol: from.Symbol,
		AmountOut:  token.FormatAmount(quote.AmountOut, to.Decimals),
		ToSymbol:   to.Symbol,
		MinimumOut: token.FormatAmount(minOut, to.Decimals),
		Slippage:   fmt.Sprintf("%.2f%%", slippage),
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(map[string]interface{}{
			"amount_in":       display.AmountIn,
			"from_token":      display.FromSymbol,
			"amount_out":      display.AmountOut,
			"to_token":        display.ToSymbol,
			"minimum_out":     display.MinimumOut,
			"slippage":        display.Slippage,
			"amount_in_raw":   quote.AmountIn.String(),
			"amount_out_raw":  quote.AmountOut.String(),
			"minimum_out_raw": minOut.String(),
		}, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuoteDetails(display)
}

// resolvePair loads the catalog and resolves both command symbols to tokens.
func resolvePair(ctx context.Context, catalog *token.Catalog, req *types.SwapRequest) (token.Token, token.Token, error) {
	if _, err := catalog.Load(ctx); err != nil {
		return token.Token{}, token.Token{}, err
	}

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

func displayQuoteDetails(q types.QuoteDisplay) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:         %s %s\n", q.AmountIn, color.YellowString(q.FromSymbol))
	fmt.Printf("  To:           ~%s %s\n", q.AmountOut, color.YellowString(q.ToSymbol))
	fmt.Printf("  Slippage:     %s\n", q.Slippage)
	fmt.Printf("  Minimum Out:  %s %s\n", color.CyanString(q.MinimumOut), q.ToSymbol)

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
