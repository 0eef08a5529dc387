package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRenderPDF renders an issued invoice and stores the file.
	TaskRenderPDF = "invoice:render_pdf"
	// TaskOverdueSweep moves issued invoices past their due date to overdue.
	TaskOverdueSweep = "invoice:overdue_sweep"
)

// RenderPDFPayload identifies the invoice to render.
type RenderPDFPayload struct {
	OwnerID   string    `json:"owner_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// OverdueSweepPayload optionally pins the sweep date (YYYY-MM-DD). Empty
// means today in UTC.
type OverdueSweepPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// NewRenderPDFTask constructs an Asynq task. Repeated requests for the same
// invoice within a minute collapse into one.
func NewRenderPDFTask(ownerID string, invoiceID uuid.UUID) (*asynq.Task, error) {
	if ownerID == "" || invoiceID == uuid.Nil {
		return nil, fmt.Errorf("render pdf task: owner and invoice are required")
	}
	data, err := json.Marshal(RenderPDFPayload{OwnerID: ownerID, InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRenderPDF, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(time.Minute),
	), nil
}

// NewOverdueSweepTask constructs the sweep task for the given date, or for
// the run date when asOf is empty.
func NewOverdueSweepTask(asOf string) (*asynq.Task, error) {
	if asOf != "" {
		if _, err := time.Parse(time.DateOnly, asOf); err != nil {
			return nil, fmt.Errorf("overdue sweep task: invalid date %q", asOf)
		}
	}
	data, err := json.Marshal(OverdueSweepPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueSweep, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
