package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/khomabhena/h5-airtime/internal/superapp"
)

var (
	payAmount      int64
	payCurrency    string
	payDescription string
	payOutBizID    string
	payQuery       bool
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Place a merchant order",
	Long: `Place a pre-transaction order with the merchant payment backend and print
the prepayId and signed cashier parameters.

There is no cashier in a terminal session; use --query to follow up with a
transaction result query for the placed order.

Example:
  h5pay pay --amount 1100 --currency USD --description "Medium Top-up" --query`,
	RunE: runPay,
}

func init() {
	payCmd.Flags().Int64Var(&payAmount, "amount", 0, "Amount in minor units (100 = $1.00) [required]")
	payCmd.Flags().StringVar(&payCurrency, "currency", "USD", "Order currency")
	payCmd.Flags().StringVar(&payDescription, "description", "", "Order description [required]")
	payCmd.Flags().StringVar(&payOutBizID, "out-biz-id", "", "Idempotency key (generated when empty)")
	payCmd.Flags().BoolVar(&payQuery, "query", false, "Query the transaction result after placing the order")
	_ = payCmd.MarkFlagRequired("amount")
	_ = payCmd.MarkFlagRequired("description")
}

func runPay(cmd *cobra.Command, args []string) error {
	gateway, err := newPaymentGateway()
	if err != nil {
		return err
	}

	result, err := gateway.PreparePayment(cmd.Context(), superapp.OrderRequest{
		OutBizID:    payOutBizID,
		Amount:      payAmount,
		Currency:    payCurrency,
		Description: payDescription,
	})
	if err != nil {
		return err
	}

	appLogger.Info("order placed",
		slog.String("outBizId", result.OutBizID),
		slog.String("prepayId", result.PrepayID),
	)
	if err := printJSON(result); err != nil {
		return err
	}

	if !payQuery {
		return nil
	}

	query, err := gateway.QueryPaymentResult(cmd.Context(), result.OutBizID)
	if err != nil {
		return err
	}
	return printJSON(query)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
