package model

import "time"

// Order statuses. An order is the billable unit behind a shoot; the
// calendar renders its scheduling projection.
const (
	OrderStatusScheduled = "scheduled"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	ID             string
	ClientID       string
	ClientName     string
	Address        string
	ShootDate      time.Time
	StartRaw       string // display string as entered, e.g. "10:00 AM"
	StartMinutes   int    // minutes past midnight; -1 when StartRaw did not parse
	DurationMin    int
	Photographer   string
	PhotographerID string
	DrivingTimeMin int
	PriceCents     int64
	Status         string
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Client struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
}

type TeamMember struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Role      string
	Color     string
	Active    bool
	CreatedAt time.Time
}
