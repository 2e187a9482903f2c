package core

import (
	"github.com/shopspring/decimal"
)

// Enum values mirror the backend's choice fields.
const (
	LineItemTypeLabor = "LABOR"
	LineItemTypePart  = "PART"

	EmploymentTypeEmployee   = "EMPLOYEE"
	EmploymentTypeContractor = "CONTRACTOR"

	PaymentTypeCredit  = "CREDIT"
	PaymentTypeLoyalty = "LOYALTY"
	PaymentTypeEither  = "EITHER"

	ActivityTypeMachineStart = "MACHINE_START"
	ActivityTypeValueAdd     = "VALUE_ADD"
	ActivityTypeEither       = "EITHER"
)

type (
	// LaundryRoom is a reference record served by the room manager service.
	LaundryRoom struct {
		ID           int64  `json:"id"`
		DisplayName  string `json:"display_name"`
		LaundryGroup int64  `json:"laundry_group"`
	}

	Machine struct {
		ID          int64  `json:"id"`
		MachineText string `json:"machine_text"`
	}

	Slot struct {
		ID             int64  `json:"id"`
		WebDisplayName string `json:"web_display_name"`
		LongName       string `json:"long_name"`
	}

	Technician struct {
		ID             int64  `json:"id"`
		EmploymentType string `json:"employment_type"`
	}

	// Job is an expense-tracker job. Foreign keys are transmitted as bare
	// ids, dates as "YYYY-MM-DD" strings; pointers carry the explicit-null
	// contract of the backend serializer.
	Job struct {
		ID          int64       `json:"id,omitempty"`
		LaundryRoom *int64      `json:"laundry_room"`
		Machine     *int64      `json:"machine"`
		JobType     string      `json:"job_type,omitempty"`
		Status      string      `json:"status,omitempty"`
		StartDate   *string     `json:"start_date"`
		FinalDate   *string     `json:"final_date"`
		Description string      `json:"description,omitempty"`
		LineItems   []*LineItem `json:"line_items,omitempty"`

		// View state, never transmitted.
		ShowLineItems       bool `json:"-"`
		ShowNewLineItemForm bool `json:"-"`
	}

	// LineItem is a billable sub-record of a job (labor or parts).
	LineItem struct {
		ID           int64            `json:"id,omitempty"`
		Job          int64            `json:"job"`
		Technician   *int64           `json:"technician"`
		LineItemType string           `json:"line_item_type,omitempty"`
		Status       string           `json:"status,omitempty"`
		Description  string           `json:"description,omitempty"`
		StartDate    *string          `json:"start_date"`
		FinishDate   *string          `json:"finish_date"`
		Time         *int             `json:"time"`
		Cost         *decimal.Decimal `json:"cost"`
	}

	// Transaction is a revenue record. Amount is the summed credit, cash
	// and balance amounts as computed by the backend serializer.
	Transaction struct {
		ID          int64           `json:"id"`
		LaundryRoom *LaundryRoom    `json:"laundry_room"`
		Machine     *Machine        `json:"machine"`
		Slot        *Slot           `json:"slot"`
		CardNumber  string          `json:"card_number"`
		Amount      decimal.Decimal `json:"amount"`
		DirtyName   string          `json:"dirty_name"`
		IsRefunded  bool            `json:"is_refunded"`

		// Set transiently by a refund attempt, never transmitted.
		RefundError bool `json:"-"`
	}
)
