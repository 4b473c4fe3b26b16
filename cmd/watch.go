package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"amm-swap/config"
	"amm-swap/pkg/amm"
	"amm-swap/pkg/metrics"
	"amm-swap/pkg/parser"
	"amm-swap/pkg/swap"
	"amm-swap/pkg/token"
	"amm-swap/pkg/util"
)

var (
	watchQuoteInterval int
	triggerOut         string
)

var watchCmd = &cobra.Command{
	Use:   "watch <amount> <from-token> to <to-token>",
	Short: "Continuously re-quote a trade and watch the rate move",
	Long: `Keep the quote for a trade fresh, printing each update. With --trigger-out
an alert is printed whenever the quoted output reaches the threshold.

When metrics_addr is configured, quote counters are exposed on /metrics.

Examples:
  amm-swap watch 1 WETH to USDC
  amm-swap watch 1 WETH to USDC --interval 10
  amm-swap watch 1 WETH to USDC --trigger-out 4000`,
	Args: cobra.MinimumNArgs(1),
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntVar(&watchQuoteInterval, "interval", 30, "Re-quote interval in seconds")
	watchCmd.Flags().StringVar(&triggerOut, "trigger-out", "", "Alert when the quoted output reaches this amount")
}

func runWatch(cmd *cobra.Command, args []string) {
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

	ctx := context.Background()
	log := util.NewLogger(cfg.LogLevel)

	if cfg.MetricsAddr != "" {
		metrics.Serve(cfg.MetricsAddr)
		fmt.Printf("Serving metrics on %s/metrics\n", cfg.MetricsAddr)
	}

	contract, err := amm.Dial(cfg.RPCURL, cfg.AMMAddress)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer contract.Close()

	catalog := token.NewCatalog(cfg.TokenListURL, cfg.ChainID, cfg.MaxTokens)
	from, to, err := resolvePair(ctx, catalog, swapReq)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fetcher := swap.NewFetcher(contract, log)
	amount := token.ParseAmount(swapReq.Amount, from.Decimals)
	if amount.Sign() <= 0 {
		printError(fmt.Errorf("invalid amount: %s", swapReq.Amount))
		os.Exit(1)
	}

	var trigger = token.ParseAmount(triggerOut, to.Decimals)

	fmt.Printf("\nWatching %s %s -> %s, re-quoting every %d seconds. Press Ctrl+C to stop.\n\n",
		swapReq.Amount, color.YellowString(from.Symbol), color.YellowString(to.Symbol), watchQuoteInterval)

	ticker := time.NewTicker(time.Duration(watchQuoteInterval) * time.Second)
	defer ticker.Stop()

	// Quote immediately first, then on each tick
	printWatchQuote(ctx, fetcher, from, to, amount, trigger)
	for range ticker.C {
		printWatchQuote(ctx, fetcher, from, to, amount, trigger)
	}
}

func printWatchQuote(ctx context.Context, fetcher *swap.Fetcher, from, to token.Token, amount, trigger *big.Int) {
	quote, err := fetcher.Fetch(ctx, from, to, amount)
	now := time.Now().Format("15:04:05")

	if err != nil {
		color.Red("[%s] quote failed: %v", now, err)
		return
	}
	if quote.IsZero() {
		color.Yellow("[%s] pool returned no output", now)
		return
	}

	out := token.FormatAmount(quote.AmountOut, to.Decimals)
	fmt.Printf("[%s] %s %s -> %s %s\n", now, token.FormatAmount(amount, from.Decimals), from.Symbol, out, to.Symbol)

	if trigger != nil && trigger.Sign() > 0 && quote.AmountOut.Cmp(trigger) >= 0 {
		color.Green("[%s] ⚡ trigger reached: output %s %s >= %s %s", now, out, to.Symbol,
			token.FormatAmount(trigger, to.Decimals), to.Symbol)
	}
}
