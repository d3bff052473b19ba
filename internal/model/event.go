package model

import (
	"fmt"
	"time"
)

// EventRequest names one event to study: a company, the index it trades
// against, and the event date.
type EventRequest struct {
	Company   string
	Market    string
	EventDate time.Time
}

func (r EventRequest) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Company, r.Market, r.EventDate.Format("2006-01-02"))
}
