package apiclient

import (
	"time"

	"github.com/septivank/meter-resolution-console/internal/domain"
)

type readingEnvelope struct {
	Data *domain.Reading `json:"data"`
}

type usersEnvelope struct {
	Data []domain.User `json:"data"`
}

// CorrectionRequest is the body of a manual reading correction. Both readings are
// always sent as numbers; notes are sent verbatim, empty included.
type CorrectionRequest struct {
	PreviousReading float64 `json:"previousReading"`
	CurrentReading  float64 `json:"currentReading"`
	Notes           string  `json:"notes"`
}

// AverageBillRequest asks the server to bill a connection on the moving average
type AverageBillRequest struct {
	ConnectionID   int64   `json:"connectionId"`
	Consumption    float64 `json:"consumption"`
	MeterReadingID int64   `json:"meterReadingID"`
}

// CreateTaskRequest is the body of a follow-up task creation
type CreateTaskRequest struct {
	TypeID                  int64           `json:"TypeId"`
	Title                   string          `json:"title"`
	Description             string          `json:"description"`
	Priority                domain.Priority `json:"priority"`
	DueDate                 time.Time       `json:"dueDate"`
	ScheduledAt             time.Time       `json:"scheduledAt"`
	AssignedTo              int64           `json:"AssignedTo"`
	RelatedConnectionID     *int64          `json:"RelatedConnectionId,omitempty"`
	RelatedSchemeID         *int64          `json:"RelatedSchemeId,omitempty"`
	RelatedZoneID           *int64          `json:"RelatedZoneId,omitempty"`
	RelatedRouteID          *int64          `json:"RelatedRouteId,omitempty"`
	RelatedTariffCategoryID *int64          `json:"RelatedTariffCategoryId,omitempty"`
}

// LoginRequest carries operator credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login. Token is empty when the server
// relies on the session cookie alone.
type LoginResponse struct {
	Token string      `json:"token,omitempty"`
	User  domain.User `json:"user"`
}
