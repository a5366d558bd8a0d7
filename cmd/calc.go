package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"taxchat/internal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	calcType   string
	calcAmount float64
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run the tax calculator",
	Long: `Calculate a tax scenario via the backend calculator.

Tax types:
  vat          VAT on a purchase amount
  income_tax   Personal income tax on gross income
  cit          Corporate income tax on gross income

All computation happens on the backend; this command only forwards the
amount matching the chosen tax type.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()

		if err := env.requireAuth(); err != nil {
			return err
		}

		grossIncome, purchaseAmount, err := calcAmounts(calcType, calcAmount)
		if err != nil {
			return err
		}

		resp, err := env.client.CalculateTax(context.Background(), grossIncome, purchaseAmount, calcType, env.session.Token())
		if err != nil {
			return fmt.Errorf("calculation failed: %w", err)
		}

		displayCalcResult(resp)
		return nil
	},
}

// calcAmounts maps the single --amount flag onto the field the chosen tax
// type uses; the other field stays nil and is serialized as null. VAT uses
// the purchase amount, income and corporate tax use gross income.
func calcAmounts(taxType string, amount float64) (grossIncome, purchaseAmount *float64, err error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("--amount must be a positive number")
	}
	switch strings.ToLower(taxType) {
	case "vat":
		return nil, &amount, nil
	case "income_tax", "cit":
		return &amount, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported tax type: %s (supported: vat, income_tax, cit)", taxType)
	}
}

func displayCalcResult(resp *internal.CalcResponse) {
	fmt.Println(headerStyle.Render(resp.TaxType))
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "Gross amount\t₦%.2f\t\n", resp.GrossAmount)
	_, _ = fmt.Fprintf(w, "Tax rate\t%.2f%%\t\n", resp.TaxRate*100)
	_, _ = fmt.Fprintf(w, "Tax amount\t₦%.2f\t\n", resp.TaxAmount)
	_, _ = fmt.Fprintf(w, "Net amount\t₦%.2f\t\n", resp.NetAmount)
	_ = w.Flush()

	if resp.Description != "" {
		fmt.Println()
		fmt.Println(idStyle.Render(resp.Description))
	}
}

func init() {
	rootCmd.AddCommand(calcCmd)
	calcCmd.Flags().StringVarP(&calcType, "type", "t", "vat", "Tax type (vat, income_tax, cit)")
	calcCmd.Flags().Float64VarP(&calcAmount, "amount", "a", 0, "Amount in naira")
	_ = calcCmd.MarkFlagRequired("amount")
}
