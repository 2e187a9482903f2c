// Package expensetracker holds the view-model behind the job and line-item
// administration screen. It is pure view glue: reference lists loaded once
// at startup, a criteria-driven search, boolean display toggles, and save
// operations whose outcomes land in named feedback fields for the view to
// render. All persistence and business rules live in the backend service.
package expensetracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"laundryadmin/internal/core"
	"laundryadmin/internal/gateway"
	"laundryadmin/internal/log"
)

const (
	laundryRoomsPath     = "/expensetracker/api/v1/laundry-rooms"
	machinesPath         = "/expensetracker/api/v1/machines"
	techniciansPath      = "/expensetracker/api/v1/technicians"
	jobStatusesPath      = "/expensetracker/api/v1/job-statuses"
	jobTypesPath         = "/expensetracker/api/v1/job-types"
	lineItemTypesPath    = "/expensetracker/api/v1/line-item-types"
	lineItemStatusesPath = "/expensetracker/api/v1/line-item-statuses"
	searchPath           = "/expensetracker/api/v1/search"
	jobsPath             = "/expensetracker/api/v1/jobs"
	lineItemsPath        = "/expensetracker/api/v1/line_items"
)

// SearchData is the job search form, serialized wholesale as the search
// request body. Room and machine carry the full dropdown record; the
// backend filters on their ids.
type SearchData struct {
	LaundryRoom *core.LaundryRoom `json:"laundry_room,omitempty"`
	Machine     *core.Machine     `json:"machine,omitempty"`
	Status      string            `json:"status,omitempty"`
	StartDate   string            `json:"start_date,omitempty"`
	FinalDate   string            `json:"final_date,omitempty"`
}

// ViewModel is the state behind the expense tracker screen.
//
// The mutex serializes all state access, standing in for the original
// single-threaded event loop: a save resets the feedback fields under the
// lock at call start, releases it for the round-trip, and re-acquires it
// to record the outcome. Two saves may therefore interleave exactly as
// their callbacks could, and last response wins.
type ViewModel struct {
	mu     sync.Mutex
	gw     gateway.Gateway
	logger *log.Logger

	SearchData SearchData

	// Reference data, loaded once; a failed fetch leaves its list nil.
	LaundryRooms     []core.LaundryRoom
	Machines         []core.Machine
	Technicians      []core.Technician
	Statuses         []string
	Types            []string
	LineItemTypes    []string
	LineItemStatuses []string

	Result []*core.Job

	ShowNewJobForm bool

	// Feedback state: at most one operation family's fields are set
	// between a reset and the next completion.
	Errors                 json.RawMessage
	SuccessfulSaveJob      *core.Job
	ErrorSaveJob           *core.Job
	SuccessfulSaveLineItem *core.LineItem
	ErrorSaveLineItem      *core.LineItem
	NewJobSuccess          bool
	NewJobErrors           json.RawMessage
	NewLineItemSuccess     bool
	NewLineItemErrors      json.RawMessage
}

func New(gw gateway.Gateway, logger *log.Logger) *ViewModel {
	return &ViewModel{
		gw:     gw,
		logger: logger.WithComponent(log.ComponentExpenseTracker),
		Result: []*core.Job{},
	}
}

// Load fetches the seven reference lists. The fetches are independent and
// unordered; a failure leaves that list unset and is deliberately not
// surfaced to the view, matching the screen's fire-and-forget loads.
func (vm *ViewModel) Load(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return vm.fetchList(ctx, laundryRoomsPath, &vm.LaundryRooms) })
	g.Go(func() error { return vm.fetchList(ctx, machinesPath, &vm.Machines) })
	g.Go(func() error { return vm.fetchList(ctx, techniciansPath, &vm.Technicians) })
	g.Go(func() error { return vm.fetchList(ctx, jobStatusesPath, &vm.Statuses) })
	g.Go(func() error { return vm.fetchList(ctx, jobTypesPath, &vm.Types) })
	g.Go(func() error { return vm.fetchList(ctx, lineItemTypesPath, &vm.LineItemTypes) })
	g.Go(func() error { return vm.fetchList(ctx, lineItemStatusesPath, &vm.LineItemStatuses) })
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

// Search submits the criteria verbatim and replaces the result list on
// success. A rejected search is a logged no-op, as on the original screen.
func (vm *ViewModel) Search(ctx context.Context) {
	vm.mu.Lock()
	criteria := vm.SearchData
	vm.mu.Unlock()

	res, err := vm.gw.Post(ctx, searchPath, criteria)
	if err != nil || !res.OK() {
		vm.logger.WarnContext(ctx, "search failed",
			log.FieldOperation, log.OpSearch,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}

	var jobs []*core.Job
	if err := res.Decode(&jobs); err != nil {
		vm.logger.WarnContext(ctx, "search decode failed", log.FieldError, err)
		return
	}

	vm.mu.Lock()
	vm.Result = jobs
	vm.mu.Unlock()
}

// ToggleShowLineItems flips a job's line-item visibility.
func (vm *ViewModel) ToggleShowLineItems(job *core.Job) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	job.ShowLineItems = !job.ShowLineItems
}

// ToggleShowNewJobForm flips the new-job form visibility.
func (vm *ViewModel) ToggleShowNewJobForm() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.ShowNewJobForm = !vm.ShowNewJobForm
}

// ToggleShowNewLineItemForm flips a job's new-line-item form visibility.
func (vm *ViewModel) ToggleShowNewLineItemForm(job *core.Job) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	job.ShowNewLineItemForm = !job.ShowNewLineItemForm
}

// ResetSavedMessage clears every feedback field. Each save-style operation
// calls it before doing anything else, so feedback from a previous
// operation never coexists with a new outcome.
func (vm *ViewModel) ResetSavedMessage() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.resetSavedMessageLocked()
}

func (vm *ViewModel) resetSavedMessageLocked() {
	vm.Errors = nil
	vm.SuccessfulSaveJob = nil
	vm.ErrorSaveJob = nil
	vm.SuccessfulSaveLineItem = nil
	vm.ErrorSaveLineItem = nil
	vm.NewJobSuccess = false
	vm.NewJobErrors = nil
	vm.NewLineItemSuccess = false
	vm.NewLineItemErrors = nil
}

// SaveJob updates an existing job. On rejection the job is recorded as the
// failed save target and the backend's validation payload lands in Errors.
func (vm *ViewModel) SaveJob(ctx context.Context, job *core.Job) {
	vm.mu.Lock()
	vm.resetSavedMessageLocked()
	job.StartDate = core.Nullable(job.StartDate)
	job.FinalDate = core.Nullable(job.FinalDate)
	vm.mu.Unlock()

	res, err := vm.gw.Put(ctx, fmt.Sprintf("%s/%d", jobsPath, job.ID), job)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil || !res.OK() {
		vm.ErrorSaveJob = job
		vm.Errors = res.Data
		vm.logger.WarnContext(ctx, "save rejected",
			log.FieldOperation, log.OpSaveJob,
			log.FieldJobID, job.ID,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}
	vm.SuccessfulSaveJob = job
}

// SaveNewJob creates a job and appends the server's record to the result
// list. The caller should start the next entry from a fresh Job; the
// submitted one is not cleared in place.
func (vm *ViewModel) SaveNewJob(ctx context.Context, job *core.Job) {
	vm.mu.Lock()
	vm.resetSavedMessageLocked()
	job.LaundryRoom = core.NullableID(job.LaundryRoom)
	job.Machine = core.NullableID(job.Machine)
	job.StartDate = core.Nullable(job.StartDate)
	job.FinalDate = core.Nullable(job.FinalDate)
	vm.mu.Unlock()

	res, err := vm.gw.Post(ctx, jobsPath, job)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil || !res.OK() {
		vm.NewJobErrors = res.Data
		vm.logger.WarnContext(ctx, "create rejected",
			log.FieldOperation, log.OpNewJob,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}

	var created core.Job
	if err := res.Decode(&created); err != nil {
		vm.logger.WarnContext(ctx, "created job decode failed", log.FieldError, err)
		return
	}
	vm.Result = append(vm.Result, &created)
	vm.NewJobSuccess = true
}

// SaveLineItem updates an existing line item. On success the line item's
// cost is overwritten with the server's authoritative value; the
// client-entered cost is not trusted past the save.
func (vm *ViewModel) SaveLineItem(ctx context.Context, lineItem *core.LineItem) {
	vm.mu.Lock()
	vm.resetSavedMessageLocked()
	lineItem.StartDate = core.Nullable(lineItem.StartDate)
	lineItem.FinishDate = core.Nullable(lineItem.FinishDate)
	vm.mu.Unlock()

	res, err := vm.gw.Put(ctx, fmt.Sprintf("%s/%d", lineItemsPath, lineItem.ID), lineItem)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil || !res.OK() {
		vm.ErrorSaveLineItem = lineItem
		vm.Errors = res.Data
		vm.logger.WarnContext(ctx, "save rejected",
			log.FieldOperation, log.OpSaveItem,
			log.FieldLineItem, lineItem.ID,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}

	vm.SuccessfulSaveLineItem = lineItem
	var updated core.LineItem
	if err := res.Decode(&updated); err != nil {
		vm.logger.WarnContext(ctx, "updated line item decode failed", log.FieldError, err)
		return
	}
	lineItem.Cost = updated.Cost
}

// SaveNewLineItem creates a line item under job and appends the server's
// record to that job's embedded sequence.
func (vm *ViewModel) SaveNewLineItem(ctx context.Context, lineItem *core.LineItem, job *core.Job) {
	vm.mu.Lock()
	vm.resetSavedMessageLocked()
	lineItem.Job = job.ID
	lineItem.Technician = core.NullableID(lineItem.Technician)
	lineItem.StartDate = core.Nullable(lineItem.StartDate)
	lineItem.FinishDate = core.Nullable(lineItem.FinishDate)
	lineItem.Time = core.NullableInt(lineItem.Time)
	lineItem.Cost = core.NullableDecimal(lineItem.Cost)
	vm.mu.Unlock()

	res, err := vm.gw.Post(ctx, lineItemsPath, lineItem)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if err != nil || !res.OK() {
		vm.NewLineItemErrors = res.Data
		vm.logger.WarnContext(ctx, "create rejected",
			log.FieldOperation, log.OpNewItem,
			log.FieldJobID, job.ID,
			log.FieldStatus, res.StatusCode,
			log.FieldError, err)
		return
	}

	var created core.LineItem
	if err := res.Decode(&created); err != nil {
		vm.logger.WarnContext(ctx, "created line item decode failed", log.FieldError, err)
		return
	}
	job.LineItems = append(job.LineItems, &created)
	vm.NewLineItemSuccess = true
}

// CheckEmployee reports whether a line item is employee labor: the type is
// LABOR and the referenced technician exists in the loaded list with
// employment type EMPLOYEE. The first technician with a matching id wins.
func (vm *ViewModel) CheckEmployee(lineItem *core.LineItem) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if lineItem.LineItemType != core.LineItemTypeLabor || lineItem.Technician == nil {
		return false
	}
	for _, tech := range vm.Technicians {
		if tech.ID == *lineItem.Technician {
			return tech.EmploymentType == core.EmploymentTypeEmployee
		}
	}
	return false
}
