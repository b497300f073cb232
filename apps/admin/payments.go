package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trezcool/schooladmin/core/school"
)

func (cli *commandLine) paymentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payments",
		Aliases: []string{"payment"},
		Short:   "School payments",
	}

	var form school.PaymentForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.svc.CreatePayment(cmd.Context(), form)
			if err != nil {
				return cli.fail(err, "Failed to create payment")
			}
			cli.success("Payment %s of %.2f %s created", p.ID, p.Amount, p.Currency)
			return nil
		},
	}
	create.Flags().Float64Var(&form.Amount, "amount", 0, "amount")
	create.Flags().StringVar(&form.Currency, "currency", "", "ISO 4217 currency code")
	create.Flags().StringVar(&form.Description, "description", "", "what the payment is for")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List payments",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				payments, err := cli.svc.Payments(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load payments")
				}
				tw := cli.table("ID", "DATE", "AMOUNT", "STATUS", "DESCRIPTION")
				for _, p := range payments {
					date := ""
					if p.CreatedAt.Valid {
						date = p.CreatedAt.Time.Format(time.DateOnly)
					}
					fmt.Fprintf(tw, "%s\t%s\t%.2f %s\t%s\t%s\n", p.ID, date, p.Amount, p.Currency, p.Status, p.Description)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether payments are enabled for the school",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := cli.svc.PaymentStatus(cmd.Context())
				if err != nil {
					return cli.fail(err, "Failed to load payment status")
				}
				cli.printf("%s\n", st.Text())
				return nil
			},
		},
		create,
	)
	return cmd
}
