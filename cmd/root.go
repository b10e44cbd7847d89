package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelfscan",
		Short: "Retail shelf inventory verification from object detection output",
		Long: `Shelfscan turns raw shelf-photo object detections into a verified product
inventory: each detected product region is paired with its price tag, the
tag's barcode is read, and the barcode is checked against the product
registry for a target product.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
