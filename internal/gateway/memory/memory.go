// Package memory is an in-process stand-in for the admin backend services.
// It serves the same routes and payload shapes as the real APIs from seeded
// fixtures, which gives the CLI an offline mode and the view-model tests a
// deterministic collaborator.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"laundryadmin/internal/core"
	"laundryadmin/internal/gateway"
)

// txnMeta holds backend-side transaction attributes that never appear in
// the serialized record but participate in search filtering.
type txnMeta struct {
	PaymentType  string
	ActivityType string
	TxTime       string // "YYYY-MM-DD HH:MM:SS", local time
}

type Store struct {
	mu sync.Mutex

	rooms       []core.LaundryRoom
	machines    []core.Machine
	slots       []core.Slot
	technicians []core.Technician
	rates       map[int64]decimal.Decimal // technician id -> hourly rate

	jobs         []*core.Job
	transactions []*core.Transaction
	meta         map[int64]txnMeta

	nextJobID      int64
	nextLineItemID int64
}

// New returns a store seeded with a small laundry operation: two rooms,
// two machines, an employee and a contractor technician, one open job and
// a page of transactions.
func New() *Store {
	employeeRate := decimal.NewFromInt(25)
	start := "2023-01-02"
	s := &Store{
		rooms: []core.LaundryRoom{
			{ID: 1, DisplayName: "1 Arden ST", LaundryGroup: 1},
			{ID: 2, DisplayName: "545 W 110th", LaundryGroup: 1},
		},
		machines: []core.Machine{
			{ID: 10, MachineText: "Washer #10"},
			{ID: 11, MachineText: "Dryer #11"},
		},
		slots: []core.Slot{
			{ID: 100, WebDisplayName: "1", LongName: "1 Arden ST / Slot 1"},
			{ID: 101, WebDisplayName: "2", LongName: "1 Arden ST / Slot 2"},
		},
		technicians: []core.Technician{
			{ID: 7, EmploymentType: core.EmploymentTypeEmployee},
			{ID: 8, EmploymentType: core.EmploymentTypeContractor},
		},
		rates: map[int64]decimal.Decimal{7: employeeRate},
		meta:  make(map[int64]txnMeta),

		nextJobID:      1000,
		nextLineItemID: 5000,
	}

	roomID, machineID := int64(1), int64(10)
	techID := int64(7)
	itemTime := 2
	itemCost := decimal.NewFromInt(50)
	s.jobs = append(s.jobs, &core.Job{
		ID:          900,
		LaundryRoom: &roomID,
		Machine:     &machineID,
		JobType:     "REPAIR",
		Status:      "IN_PROGRESS",
		StartDate:   &start,
		LineItems: []*core.LineItem{{
			ID:           4900,
			Job:          900,
			Technician:   &techID,
			LineItemType: core.LineItemTypeLabor,
			Status:       "IN_PROGRESS",
			StartDate:    &start,
			Time:         &itemTime,
			Cost:         &itemCost,
		}},
	})

	addTxn := func(id int64, room *core.LaundryRoom, machine *core.Machine, slot *core.Slot, card string, amount string, m txnMeta) {
		amt, _ := decimal.NewFromString(amount)
		s.transactions = append(s.transactions, &core.Transaction{
			ID:          id,
			LaundryRoom: room,
			Machine:     machine,
			Slot:        slot,
			CardNumber:  card,
			Amount:      amt,
		})
		s.meta[id] = m
	}
	addTxn(1, &s.rooms[0], &s.machines[0], &s.slots[0], "4242", "3.50",
		txnMeta{PaymentType: core.PaymentTypeCredit, ActivityType: core.ActivityTypeMachineStart, TxTime: "2023-01-05 14:35:00"})
	addTxn(2, &s.rooms[0], &s.machines[1], &s.slots[1], "88321", "10.00",
		txnMeta{PaymentType: core.PaymentTypeLoyalty, ActivityType: core.ActivityTypeValueAdd, TxTime: "2023-01-05 15:10:00"})
	addTxn(3, &s.rooms[1], &s.machines[1], nil, "Unknown", "2.75",
		txnMeta{PaymentType: core.PaymentTypeCredit, ActivityType: core.ActivityTypeMachineStart, TxTime: "2023-01-06 09:00:00"})

	return s
}

func (s *Store) Get(_ context.Context, path string) (gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch path {
	case "/expensetracker/api/v1/laundry-rooms", "/roommanager/api/v1/laundry-rooms":
		return jsonResult(http.StatusOK, s.rooms)
	case "/expensetracker/api/v1/machines", "/roommanager/api/v1/machines":
		return jsonResult(http.StatusOK, s.machines)
	case "/roommanager/api/v1/slots":
		return jsonResult(http.StatusOK, s.slots)
	case "/expensetracker/api/v1/technicians":
		return jsonResult(http.StatusOK, s.technicians)
	case "/expensetracker/api/v1/job-statuses":
		return jsonResult(http.StatusOK, []string{"CREATED", "IN_PROGRESS", "CLOSED"})
	case "/expensetracker/api/v1/job-types":
		return jsonResult(http.StatusOK, []string{"REPAIR", "INSTALLATION", "MAINTENANCE"})
	case "/expensetracker/api/v1/line-item-types":
		return jsonResult(http.StatusOK, []string{core.LineItemTypeLabor, core.LineItemTypePart})
	case "/expensetracker/api/v1/line-item-statuses":
		return jsonResult(http.StatusOK, []string{"CREATED", "IN_PROGRESS", "CLOSED"})
	case "/revenue/api/v1/payment-types":
		return jsonResult(http.StatusOK, []string{core.PaymentTypeCredit, core.PaymentTypeLoyalty, core.PaymentTypeEither})
	case "/revenue/api/v1/activity-types":
		return jsonResult(http.StatusOK, []string{core.ActivityTypeMachineStart, core.ActivityTypeValueAdd, core.ActivityTypeEither})
	}
	return notFound()
}

func (s *Store) Post(_ context.Context, path string, body any) (gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch path {
	case "/expensetracker/api/v1/search":
		return s.searchJobs(body)
	case "/expensetracker/api/v1/jobs":
		return s.createJob(body)
	case "/expensetracker/api/v1/line_items":
		return s.createLineItem(body)
	case "/revenue/api/v1/search":
		return s.searchTransactions(body)
	case "/revenue/api/v1/refund":
		return s.refund(body)
	}
	return notFound()
}

func (s *Store) Put(_ context.Context, path string, body any) (gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := trailingID(path, "/expensetracker/api/v1/jobs/"); ok {
		return s.updateJob(id, body)
	}
	if id, ok := trailingID(path, "/expensetracker/api/v1/line_items/"); ok {
		return s.updateLineItem(id, body)
	}
	return notFound()
}

type jobCriteria struct {
	LaundryRoom *core.LaundryRoom `json:"laundry_room"`
	Machine     *core.Machine     `json:"machine"`
	Status      string            `json:"status"`
	StartDate   string            `json:"start_date"`
	FinalDate   string            `json:"final_date"`
}

func (s *Store) searchJobs(body any) (gateway.Result, error) {
	var crit jobCriteria
	if res, err := decodeBody(body, &crit); err != nil {
		return res, nil
	}

	var out []*core.Job
	for _, job := range s.jobs {
		if crit.LaundryRoom != nil && (job.LaundryRoom == nil || *job.LaundryRoom != crit.LaundryRoom.ID) {
			continue
		}
		if crit.Machine != nil && (job.Machine == nil || *job.Machine != crit.Machine.ID) {
			continue
		}
		if crit.Status != "" && job.Status != crit.Status {
			continue
		}
		if crit.StartDate != "" && (job.StartDate == nil || *job.StartDate < crit.StartDate) {
			continue
		}
		if crit.FinalDate != "" && (job.StartDate == nil || *job.StartDate > crit.FinalDate) {
			continue
		}
		out = append(out, job)
	}
	if out == nil {
		out = []*core.Job{}
	}
	return jsonResult(http.StatusOK, out)
}

func (s *Store) createJob(body any) (gateway.Result, error) {
	var job core.Job
	if res, err := decodeBody(body, &job); err != nil {
		return res, nil
	}
	if errs := validateJob(&job); len(errs) > 0 {
		return jsonResult(http.StatusBadRequest, errs)
	}
	s.nextJobID++
	job.ID = s.nextJobID
	job.LineItems = []*core.LineItem{}
	s.jobs = append(s.jobs, &job)
	return jsonResult(http.StatusOK, &job)
}

func (s *Store) updateJob(id int64, body any) (gateway.Result, error) {
	var job core.Job
	if res, err := decodeBody(body, &job); err != nil {
		return res, nil
	}
	for i, existing := range s.jobs {
		if existing.ID != id {
			continue
		}
		if errs := validateJob(&job); len(errs) > 0 {
			return jsonResult(http.StatusBadRequest, errs)
		}
		job.ID = id
		job.LineItems = existing.LineItems
		s.jobs[i] = &job
		return jsonResult(http.StatusOK, &job)
	}
	return notFound()
}

func (s *Store) createLineItem(body any) (gateway.Result, error) {
	var item core.LineItem
	if res, err := decodeBody(body, &item); err != nil {
		return res, nil
	}
	if errs := s.validateLineItem(&item); len(errs) > 0 {
		return jsonResult(http.StatusBadRequest, errs)
	}
	s.nextLineItemID++
	item.ID = s.nextLineItemID
	s.applyLaborCost(&item)
	for _, job := range s.jobs {
		if job.ID == item.Job {
			job.LineItems = append(job.LineItems, &item)
			break
		}
	}
	return jsonResult(http.StatusOK, &item)
}

func (s *Store) updateLineItem(id int64, body any) (gateway.Result, error) {
	var item core.LineItem
	if res, err := decodeBody(body, &item); err != nil {
		return res, nil
	}
	if errs := s.validateLineItem(&item); len(errs) > 0 {
		return jsonResult(http.StatusBadRequest, errs)
	}
	item.ID = id
	s.applyLaborCost(&item)
	for _, job := range s.jobs {
		for i, existing := range job.LineItems {
			if existing.ID == id {
				job.LineItems[i] = &item
			}
		}
	}
	return jsonResult(http.StatusOK, &item)
}

// applyLaborCost recomputes the authoritative cost the way the backend
// does: employee labor is billed as hours worked times the hourly rate,
// whatever the client submitted.
func (s *Store) applyLaborCost(item *core.LineItem) {
	if item.LineItemType != core.LineItemTypeLabor || item.Technician == nil || item.Time == nil {
		return
	}
	rate, ok := s.rates[*item.Technician]
	if !ok {
		return
	}
	cost := rate.Mul(decimal.NewFromInt(int64(*item.Time)))
	item.Cost = &cost
}

func validateJob(job *core.Job) map[string][]string {
	errs := make(map[string][]string)
	if job.LaundryRoom == nil && job.Machine == nil {
		errs["non_field_errors"] = append(errs["non_field_errors"],
			"At least one machine or laundry room must be filled in.")
	}
	if job.Status == "CLOSED" && job.FinalDate == nil {
		errs["final_date"] = append(errs["final_date"],
			"Final date must be filled in for status closed.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Store) validateLineItem(item *core.LineItem) map[string][]string {
	errs := make(map[string][]string)
	switch item.LineItemType {
	case core.LineItemTypeLabor:
		if item.Technician == nil {
			errs["technician"] = append(errs["technician"],
				"Technician must be filled in for type labor.")
		}
	case core.LineItemTypePart:
		if item.Technician != nil {
			errs["technician"] = append(errs["technician"],
				"Technician must be null for type part.")
		}
	}
	if item.Status == "CLOSED" && item.FinishDate == nil {
		errs["finish_date"] = append(errs["finish_date"],
			"Finish date must be filled in.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type txnCriteria struct {
	LaundryRoom       *core.LaundryRoom `json:"laundry_room"`
	Machine           *core.Machine     `json:"machine"`
	Slot              *core.Slot        `json:"slot"`
	StartTime         string            `json:"start_time"`
	PaymentType       string            `json:"payment_type"`
	ActivityType      string            `json:"activity_type"`
	LoyaltyCardNumber string            `json:"loyalty_card_number"`
}

func (s *Store) searchTransactions(body any) (gateway.Result, error) {
	var crit txnCriteria
	if res, err := decodeBody(body, &crit); err != nil {
		return res, nil
	}

	var out []*core.Transaction
	for _, txn := range s.transactions {
		m := s.meta[txn.ID]
		if crit.LaundryRoom != nil && (txn.LaundryRoom == nil || txn.LaundryRoom.ID != crit.LaundryRoom.ID) {
			continue
		}
		if crit.Machine != nil && (txn.Machine == nil || txn.Machine.ID != crit.Machine.ID) {
			continue
		}
		if crit.Slot != nil && (txn.Slot == nil || txn.Slot.ID != crit.Slot.ID) {
			continue
		}
		// Timestamps are "YYYY-MM-DD HH:MM:SS" so string order is time order.
		if crit.StartTime != "" && m.TxTime < crit.StartTime {
			continue
		}
		if crit.PaymentType != "" && crit.PaymentType != core.PaymentTypeEither && m.PaymentType != crit.PaymentType {
			continue
		}
		if crit.ActivityType != "" && crit.ActivityType != core.ActivityTypeEither && m.ActivityType != crit.ActivityType {
			continue
		}
		if crit.LoyaltyCardNumber != "" && txn.CardNumber != crit.LoyaltyCardNumber {
			continue
		}
		out = append(out, txn)
	}
	if out == nil {
		out = []*core.Transaction{}
	}
	return jsonResult(http.StatusOK, out)
}

type refundRequest struct {
	Transactions []int64 `json:"transactions"`
}

type refundResponse struct {
	HasError          bool    `json:"has_error,omitempty"`
	ErrorTransactions []int64 `json:"error_transactions"`
}

func (s *Store) refund(body any) (gateway.Result, error) {
	var req refundRequest
	if res, err := decodeBody(body, &req); err != nil {
		return res, nil
	}

	resp := refundResponse{ErrorTransactions: []int64{}}
	for _, id := range req.Transactions {
		txn := s.findTransaction(id)
		// No card on file or double refund: the block fails.
		if txn == nil || txn.CardNumber == "Unknown" || txn.IsRefunded {
			resp.ErrorTransactions = append(resp.ErrorTransactions, id)
			continue
		}
		txn.IsRefunded = true
	}
	if len(resp.ErrorTransactions) > 0 {
		resp.HasError = true
	}
	return jsonResult(http.StatusOK, resp)
}

func (s *Store) findTransaction(id int64) *core.Transaction {
	for _, txn := range s.transactions {
		if txn.ID == id {
			return txn
		}
	}
	return nil
}

func decodeBody(body, out any) (gateway.Result, error) {
	data, err := json.Marshal(body)
	if err == nil {
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		res, _ := jsonResult(http.StatusBadRequest, map[string][]string{
			"non_field_errors": {fmt.Sprintf("Malformed request body: %v.", err)},
		})
		return res, err
	}
	return gateway.Result{}, nil
}

func jsonResult(status int, payload any) (gateway.Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return gateway.Result{}, fmt.Errorf("encode fixture payload: %w", err)
	}
	return gateway.Result{StatusCode: status, Data: data}, nil
}

func notFound() (gateway.Result, error) {
	return jsonResult(http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func trailingID(path, prefix string) (int64, bool) {
	if !strings.HasPrefix(path, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(path, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
