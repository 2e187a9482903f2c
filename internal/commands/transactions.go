package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"laundryadmin/internal/core"
	"laundryadmin/internal/revenue"
)

func newTransactionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "Search revenue transactions and process refunds",
	}
	cmd.AddCommand(newTransactionsSearchCommand(a))
	cmd.AddCommand(newTransactionsRefundCommand(a))
	return cmd
}

type txnFilters struct {
	room, machine, slot             int64
	paymentType, activityType, card string
	date, clock                     string
	window                          int
}

func (f *txnFilters) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.room, "room", 0, "laundry room id")
	cmd.Flags().Int64Var(&f.machine, "machine", 0, "machine id")
	cmd.Flags().Int64Var(&f.slot, "slot", 0, "slot id")
	cmd.Flags().StringVar(&f.paymentType, "payment-type", "", "CREDIT, LOYALTY or EITHER")
	cmd.Flags().StringVar(&f.activityType, "activity-type", "", "MACHINE_START, VALUE_ADD or EITHER")
	cmd.Flags().StringVar(&f.card, "card", "", "loyalty card number")
	cmd.Flags().StringVar(&f.date, "date", "", "transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.clock, "time", "", "time of day for --date (HH:MM)")
	cmd.Flags().IntVar(&f.window, "window", 0, "hours after --date/--time to include")
}

func (f *txnFilters) criteria() revenue.SearchData {
	criteria := revenue.SearchData{
		PaymentType:       f.paymentType,
		ActivityType:      f.activityType,
		LoyaltyCardNumber: f.card,
		TimeWindow:        f.window,
		Date:              f.date,
		Time:              f.clock,
	}
	if f.room != 0 {
		criteria.LaundryRoom = &core.LaundryRoom{ID: f.room}
	}
	if f.machine != 0 {
		criteria.Machine = &core.Machine{ID: f.machine}
	}
	if f.slot != 0 {
		criteria.Slot = &core.Slot{ID: f.slot}
	}
	return criteria
}

func newTransactionsSearchCommand(a *app) *cobra.Command {
	filters := &txnFilters{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			vm := revenue.New(a.gw, a.logger)
			vm.Load(cmd.Context())
			vm.SearchData = filters.criteria()
			vm.Search(cmd.Context())
			if vm.Errors != nil {
				return fmt.Errorf("search rejected: %s", string(vm.Errors))
			}
			printTransactions(cmd, vm.Result)
			return nil
		},
	}
	filters.register(cmd)
	return cmd
}

func newTransactionsRefundCommand(a *app) *cobra.Command {
	filters := &txnFilters{}
	var ids []int64
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Refund transactions by id",
		Long: `Searches with the given filters, selects the listed transaction
ids from the results, and submits them as one refund batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vm := revenue.New(a.gw, a.logger)
			vm.SearchData = filters.criteria()
			vm.Search(cmd.Context())
			if vm.Errors != nil {
				return fmt.Errorf("search rejected: %s", string(vm.Errors))
			}

			byID := make(map[int64]*core.Transaction, len(vm.Result))
			for _, txn := range vm.Result {
				byID[txn.ID] = txn
			}
			for _, id := range ids {
				txn, ok := byID[id]
				if !ok {
					return fmt.Errorf("transaction %d not in search results", id)
				}
				vm.ToggleSelectTransaction(txn)
			}

			vm.Refund(cmd.Context())
			if !vm.Success {
				return fmt.Errorf("refund request failed")
			}
			for _, txn := range vm.SelectedTransactions {
				switch {
				case txn.RefundError:
					fmt.Fprintf(cmd.OutOrStdout(), "transaction %d: REFUND FAILED\n", txn.ID)
				case txn.IsRefunded:
					fmt.Fprintf(cmd.OutOrStdout(), "transaction %d: refunded\n", txn.ID)
				}
			}
			if vm.HasError {
				return fmt.Errorf("%d transaction(s) could not be refunded", len(vm.ErrorTransactions))
			}
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "transaction id to refund (repeatable, required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func printTransactions(cmd *cobra.Command, txns []*core.Transaction) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCARD\tAMOUNT\tROOM\tMACHINE\tREFUNDED")
	for _, txn := range txns {
		room, machine := "-", "-"
		if txn.LaundryRoom != nil {
			room = txn.LaundryRoom.DisplayName
		}
		if txn.Machine != nil {
			machine = txn.Machine.MachineText
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%v\n",
			txn.ID, txn.CardNumber, txn.Amount.StringFixed(2), room, machine, txn.IsRefunded)
	}
	_ = w.Flush()
}
