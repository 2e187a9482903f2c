// Package revenue holds the view-model behind the transaction viewer: a
// criteria-driven transaction search, a selection set, and a batch refund
// whose per-transaction outcome is reconciled back into the result list.
package revenue

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/errgroup"

	"laundryadmin/internal/core"
	"laundryadmin/internal/gateway"
	"laundryadmin/internal/log"
)

const (
	laundryRoomsPath  = "/roommanager/api/v1/laundry-rooms"
	machinesPath      = "/roommanager/api/v1/machines"
	slotsPath         = "/roommanager/api/v1/slots"
	paymentTypesPath  = "/revenue/api/v1/payment-types"
	activityTypesPath = "/revenue/api/v1/activity-types"
	searchPath        = "/revenue/api/v1/search"
	refundPath        = "/revenue/api/v1/refund"
)

// SearchData is the transaction search form, serialized wholesale. Date
// and Time are the two halves of the form's timestamp picker; StartTime is
// derived from them at search time and must never be stale.
type SearchData struct {
	LaundryRoom       *core.LaundryRoom `json:"laundry_room,omitempty"`
	Machine           *core.Machine     `json:"machine,omitempty"`
	Slot              *core.Slot        `json:"slot,omitempty"`
	PaymentType       string            `json:"payment_type,omitempty"`
	ActivityType      string            `json:"activity_type,omitempty"`
	LoyaltyCardNumber string            `json:"loyalty_card_number,omitempty"`
	TimeWindow        int               `json:"time_window,omitempty"`
	Date              string            `json:"date,omitempty"`
	Time              string            `json:"time,omitempty"`
	StartTime         string            `json:"start_time,omitempty"`
}

type refundRequest struct {
	Transactions []int64 `json:"transactions"`
}

type refundResponse struct {
	HasError          bool    `json:"has_error"`
	ErrorTransactions []int64 `json:"error_transactions"`
}

// ViewModel is the state behind the transaction viewer. The mutex plays
// the same event-loop role as in the expense tracker view-model.
type ViewModel struct {
	mu     sync.Mutex
	gw     gateway.Gateway
	logger *log.Logger

	SearchData SearchData

	LaundryRooms  []core.LaundryRoom
	Machines      []core.Machine
	Slots         []core.Slot
	PaymentTypes  []string
	ActivityTypes []string

	Result []*core.Transaction

	// SelectedTransactions is an ordered set keyed by object identity;
	// toggling an entry off removes its first occurrence.
	SelectedTransactions []*core.Transaction

	Success  bool
	HasError bool
	// Errors carries a rejected search's payload verbatim.
	Errors json.RawMessage
	// ErrorTransactions holds the failing ids from the last refund.
	ErrorTransactions []int64
}

func New(gw gateway.Gateway, logger *log.Logger) *ViewModel {
	return &ViewModel{
		gw:     gw,
		logger: logger.WithComponent(log.ComponentRevenue),
		Result: []*core.Transaction{},
	}
}

// Load fetches the five reference lists, unordered, failures logged and
// otherwise ignored.
func (vm *ViewModel) Load(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return vm.fetchList(ctx, laundryRoomsPath, &vm.LaundryRooms) })
	g.Go(func() error { return vm.fetchList(ctx, machinesPath, &vm.Machines) })
	g.Go(func() error { return vm.fetchList(ctx, slotsPath, &vm.Slots) })
	g.Go(func() error { return vm.fetchList(ctx, paymentTypesPath, &vm.PaymentTypes) })
	g.Go(func() error { return vm.fetchList(ctx, activityTypesPath, &vm.ActivityTypes) })
	_ = g.Wait()
}

func (vm *ViewModel) fetchList(ctx context.Context, path string, out any) error {
	res, err := vm.gw.Get(ctx, path)
	if err != nil || !res.OK() {
		vm.logger.WarnContext(ctx, "reference data fetch failed",
			log.FieldOperation, log.OpLoad,
			log.FieldPath, path,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return nil
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err := res.Decode(out); err != nil {
		vm.logger.WarnContext(ctx, "reference data decode failed",
			log.FieldPath, path, log.FieldError, err)
	}
	return nil
}

// Search recomputes start_time from the date and time fields when both are
// set, submits the criteria, and replaces the result list on success. A
// rejected search stores the backend's payload in Errors.
func (vm *ViewModel) Search(ctx context.Context) {
	vm.mu.Lock()
	if vm.SearchData.Date != "" && vm.SearchData.Time != "" {
		vm.SearchData.StartTime = vm.SearchData.Date + " " + vm.SearchData.Time + ":00"
	}
	criteria := vm.SearchData
	vm.mu.Unlock()

	res, err := vm.gw.Post(ctx, searchPath, criteria)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil || !res.OK() {
		vm.Errors = res.Data
		vm.logger.WarnContext(ctx, "search failed",
			log.FieldOperation, log.OpSearch,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}

	var txns []*core.Transaction
	if err := res.Decode(&txns); err != nil {
		vm.logger.WarnContext(ctx, "search decode failed", log.FieldError, err)
		return
	}
	vm.Result = txns
}

// ToggleSelectTransaction adds the transaction to the selection, or
// removes it if already selected.
func (vm *ViewModel) ToggleSelectTransaction(txn *core.Transaction) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i, selected := range vm.SelectedTransactions {
		if selected == txn {
			vm.SelectedTransactions = append(vm.SelectedTransactions[:i], vm.SelectedTransactions[i+1:]...)
			return
		}
	}
	vm.SelectedTransactions = append(vm.SelectedTransactions, txn)
}

// Refund submits the selected transaction ids as one batch. Every attempt
// first clears the three feedback flags and every result row's transient
// refund_error. On success each selected transaction still in the result
// list is reconciled against the returned failing-id list: absent means
// refunded, present means refund_error. A transport-level failure sets
// HasError alone.
func (vm *ViewModel) Refund(ctx context.Context) {
	vm.mu.Lock()
	vm.HasError = false
	vm.Success = false
	vm.Errors = nil
	vm.ErrorTransactions = nil
	for _, txn := range vm.Result {
		txn.RefundError = false
	}
	ids := make([]int64, 0, len(vm.SelectedTransactions))
	for _, txn := range vm.SelectedTransactions {
		ids = append(ids, txn.ID)
	}
	vm.mu.Unlock()

	res, err := vm.gw.Post(ctx, refundPath, refundRequest{Transactions: ids})

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil || !res.OK() {
		vm.HasError = true
		vm.logger.WarnContext(ctx, "refund failed",
			log.FieldOperation, log.OpRefund,
			log.FieldSelected, len(ids),
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}

	var resp refundResponse
	if err := res.Decode(&resp); err != nil {
		vm.logger.WarnContext(ctx, "refund decode failed", log.FieldError, err)
		vm.HasError = true
		return
	}

	vm.Success = true
	if resp.HasError {
		vm.HasError = true
	}
	vm.ErrorTransactions = resp.ErrorTransactions

	selected := make(map[int64]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	failed := make(map[int64]bool, len(resp.ErrorTransactions))
	for _, id := range resp.ErrorTransactions {
		failed[id] = true
	}
	for _, txn := range vm.Result {
		if !selected[txn.ID] {
			continue
		}
		if failed[txn.ID] {
			txn.RefundError = true
		} else {
			txn.IsRefunded = true
		}
	}
}
