package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"amm-swap/config"
	"amm-swap/pkg/amm"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a submitted swap transaction",
	Long: `Check whether a submitted swap transaction is pending, confirmed, or failed.

Examples:
  amm-swap status 0x1234...abcd
  amm-swap status 0x1234...abcd --watch
  amm-swap status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	txHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	contract, err := amm.Dial(cfg.RPCURL, cfg.AMMAddress)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer contract.Close()

	if watchStatus {
		watchTxStatus(contract, txHash, jsonOutput)
	} else {
		checkTxStatus(contract, txHash, jsonOutput)
	}
}

func checkTxStatus(contract *amm.Contract, txHash string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	info, err := contract.TransactionInfo(context.Background(), txHash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTxStatus(info, txHash)
	}
}

func watchTxStatus(contract *amm.Contract, txHash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(txHash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if checkAndDisplayTxStatus(contract, txHash) {
		return
	}

	// Then check periodically until the transaction settles
	for range ticker.C {
		if checkAndDisplayTxStatus(contract, txHash) {
			return
		}
	}
}

// checkAndDisplayTxStatus reports true once the transaction is terminal.
func checkAndDisplayTxStatus(contract *amm.Contract, txHash string) bool {
	info, err := contract.TransactionInfo(context.Background(), txHash)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayTxStatus(info, txHash)

	pending, _ := info["pending"].(bool)
	_, mined := info["status"]
	return !pending && mined
}

func displayTxStatus(info map[string]interface{}, txHash string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction:  %s\n", color.CyanString(txHash))
	fmt.Printf("  Status:       %s\n", coloredTxStatus(info))

	if block, ok := info["block_number"]; ok {
		fmt.Printf("  Block:        %v\n", block)
	}
	if gasUsed, ok := info["gas_used"]; ok {
		fmt.Printf("  Gas Used:     %v\n", gasUsed)
	}
	if to, ok := info["to"]; ok {
		fmt.Printf("  Pool:         %s\n", color.HiBlackString(fmt.Sprintf("%v", to)))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func coloredTxStatus(info map[string]interface{}) string {
	if pending, _ := info["pending"].(bool); pending {
		return color.YellowString("SUBMITTED")
	}
	if status, ok := info["status"].(uint64); ok {
		if status == ethtypes.ReceiptStatusSuccessful {
			return color.GreenString("CONFIRMED")
		}
		return color.RedString("FAILED")
	}
	return color.YellowString("UNKNOWN")
}
