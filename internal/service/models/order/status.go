package order

import (
	"fmt"
	"strings"
)

// Status is the fulfillment status of an order.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusPacked    Status = "packed"
	StatusShipped   Status = "shipped"
	StatusInvoiced  Status = "invoiced"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

var statusRank = map[Status]int{
	StatusDraft:     0,
	StatusConfirmed: 1,
	StatusPacked:    2,
	StatusShipped:   3,
	StatusInvoiced:  4,
	StatusClosed:    5,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusRank[st]; ok || st == StatusCancelled {
		return st, nil
	}

	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
// Cancellation is allowed from any non-terminal state; cancelled orders never move again.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	if s == StatusCancelled || s == StatusClosed {
		return false
	}
	if next == StatusCancelled {
		return true
	}

	return statusRank[next] > statusRank[s]
}

// PaymentStatus is derived from completed payments against the grand total.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); ps {
	case PaymentPending, PaymentPartial, PaymentPaid, PaymentOverdue:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", s)
	}
}

// Incoterm is one of the eleven Incoterms 2020 rules.
type Incoterm string

const (
	IncotermEXW Incoterm = "EXW"
	IncotermFCA Incoterm = "FCA"
	IncotermFAS Incoterm = "FAS"
	IncotermFOB Incoterm = "FOB"
	IncotermCFR Incoterm = "CFR"
	IncotermCIF Incoterm = "CIF"
	IncotermCPT Incoterm = "CPT"
	IncotermCIP Incoterm = "CIP"
	IncotermDAP Incoterm = "DAP"
	IncotermDPU Incoterm = "DPU"
	IncotermDDP Incoterm = "DDP"
)

var incoterms = []Incoterm{
	IncotermEXW, IncotermFCA, IncotermFAS, IncotermFOB, IncotermCFR, IncotermCIF,
	IncotermCPT, IncotermCIP, IncotermDAP, IncotermDPU, IncotermDDP,
}

func ParseIncoterm(s string) (Incoterm, error) {
	code := Incoterm(strings.ToUpper(strings.TrimSpace(s)))
	for _, it := range incoterms {
		if it == code {
			return it, nil
		}
	}

	return "", fmt.Errorf("unknown incoterm %q", s)
}
