package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"laundryadmin/internal/core"
	"laundryadmin/internal/expensetracker"
)

func newJobsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Search and maintain expense tracker jobs",
	}
	cmd.AddCommand(newJobsSearchCommand(a))
	cmd.AddCommand(newJobsCreateCommand(a))
	cmd.AddCommand(newJobsAddItemCommand(a))
	return cmd
}

func newJobsSearchCommand(a *app) *cobra.Command {
	var (
		room, machine        int64
		status, start, final string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search jobs by room, machine, status or date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			vm := expensetracker.New(a.gw, a.logger)
			vm.Load(cmd.Context())
			vm.SearchData = jobCriteria(room, machine, status, start, final)
			vm.Search(cmd.Context())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROOM\tMACHINE\tTYPE\tSTATUS\tSTART\tFINAL\tITEMS")
			for _, job := range vm.Result {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					job.ID, fmtID(job.LaundryRoom), fmtID(job.Machine),
					job.JobType, job.Status,
					fmtDate(job.StartDate), fmtDate(job.FinalDate),
					len(job.LineItems))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&room, "room", 0, "laundry room id")
	cmd.Flags().Int64Var(&machine, "machine", 0, "machine id")
	cmd.Flags().StringVar(&status, "status", "", "job status")
	cmd.Flags().StringVar(&start, "start-date", "", "jobs starting on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&final, "final-date", "", "jobs starting on or before (YYYY-MM-DD)")
	return cmd
}

func newJobsCreateCommand(a *app) *cobra.Command {
	var (
		room, machine                       int64
		jobType, status, start, final, desc string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			vm := expensetracker.New(a.gw, a.logger)
			job := &core.Job{
				LaundryRoom: optionalID(room),
				Machine:     optionalID(machine),
				JobType:     jobType,
				Status:      status,
				StartDate:   optionalString(start),
				FinalDate:   optionalString(final),
				Description: desc,
			}
			vm.SaveNewJob(cmd.Context(), job)
			if !vm.NewJobSuccess {
				return fmt.Errorf("job rejected: %s", string(vm.NewJobErrors))
			}
			created := vm.Result[len(vm.Result)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "created job %d\n", created.ID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&room, "room", 0, "laundry room id")
	cmd.Flags().Int64Var(&machine, "machine", 0, "machine id")
	cmd.Flags().StringVar(&jobType, "type", "", "job type (required)")
	cmd.Flags().StringVar(&status, "status", "", "job status (required)")
	cmd.Flags().StringVar(&start, "start-date", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&final, "final-date", "", "final date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&desc, "description", "", "job description")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newJobsAddItemCommand(a *app) *cobra.Command {
	var (
		jobID, technician                     int64
		itemType, status, start, finish, desc string
		hours                                 int
		cost                                  string
	)
	cmd := &cobra.Command{
		Use:   "add-item",
		Short: "Add a line item to an existing job",
		RunE: func(cmd *cobra.Command, args []string) error {
			item := &core.LineItem{
				Technician:   optionalID(technician),
				LineItemType: itemType,
				Status:       status,
				Description:  desc,
				StartDate:    optionalString(start),
				FinishDate:   optionalString(finish),
				Time:         optionalInt(hours),
			}
			if cost != "" {
				amount, err := decimal.NewFromString(cost)
				if err != nil {
					return fmt.Errorf("invalid cost %q: %w", cost, err)
				}
				item.Cost = &amount
			}

			vm := expensetracker.New(a.gw, a.logger)
			job := &core.Job{ID: jobID}
			vm.SaveNewLineItem(cmd.Context(), item, job)
			if !vm.NewLineItemSuccess {
				return fmt.Errorf("line item rejected: %s", string(vm.NewLineItemErrors))
			}
			created := job.LineItems[len(job.LineItems)-1]
			fmt.Fprintf(cmd.OutOrStdout(), "created line item %d on job %d (cost %s)\n",
				created.ID, jobID, fmtCost(created.Cost))
			return nil
		},
	}
	cmd.Flags().Int64Var(&jobID, "job", 0, "owning job id (required)")
	cmd.Flags().Int64Var(&technician, "technician", 0, "technician id")
	cmd.Flags().StringVar(&itemType, "type", "", "line item type, LABOR or PART (required)")
	cmd.Flags().StringVar(&status, "status", "", "line item status (required)")
	cmd.Flags().StringVar(&start, "start-date", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&finish, "finish-date", "", "finish date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&hours, "time", 0, "hours worked")
	cmd.Flags().StringVar(&cost, "cost", "", "cost amount")
	cmd.Flags().StringVar(&desc, "description", "", "line item description")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func jobCriteria(room, machine int64, status, start, final string) expensetracker.SearchData {
	criteria := expensetracker.SearchData{
		Status:    status,
		StartDate: start,
		FinalDate: final,
	}
	if room != 0 {
		criteria.LaundryRoom = &core.LaundryRoom{ID: room}
	}
	if machine != 0 {
		criteria.Machine = &core.Machine{ID: machine}
	}
	return criteria
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func optionalInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fmtID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func fmtDate(date *string) string {
	if date == nil || strings.TrimSpace(*date) == "" {
		return "-"
	}
	return *date
}

func fmtCost(cost *decimal.Decimal) string {
	if cost == nil {
		return "-"
	}
	return cost.StringFixed(2)
}
