package buyer

import "time"

// State is the lifecycle state of a buyer account.
type State string

const (
	StateActive      State = "active"
	StateSuspended   State = "suspended"
	StateDeactivated State = "deactivated"
)

// Buyer is a customer organisation that places export orders.
type Buyer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Country      string    `json:"country"`
	ContactEmail string    `json:"contactEmail"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CanOrder reports whether new orders may be placed for the buyer.
func (b *Buyer) CanOrder() bool {
	return b.State == StateActive
}
