package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <outBizId>",
	Short: "Query the result of a transaction",
	Long:  `Sign and send a transaction result query to the merchant payment backend and print the status payload`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, err := newPaymentGateway()
		if err != nil {
			return err
		}

		result, err := gateway.QueryPaymentResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}
