package domain

import (
	"strings"
	"time"
)

// Priority of a field task
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Priorities lists the accepted priorities in ascending order
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ParsePriority accepts any casing and returns false for unknown values
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Priorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// User is an operator or field officer known to the billing API
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TaskType is an entry of the task-type taxonomy
type TaskType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Task is a field work item as returned by the task-management API
type Task struct {
	ID                      int64      `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	TypeID                  int64      `json:"TypeId"`
	Priority                Priority   `json:"priority"`
	DueDate                 *time.Time `json:"dueDate,omitempty"`
	ScheduledAt             *time.Time `json:"scheduledAt,omitempty"`
	AssignedTo              int64      `json:"AssignedTo"`
	RelatedConnectionID     *int64     `json:"RelatedConnectionId,omitempty"`
	RelatedSchemeID         *int64     `json:"RelatedSchemeId,omitempty"`
	RelatedZoneID           *int64     `json:"RelatedZoneId,omitempty"`
	RelatedRouteID          *int64     `json:"RelatedRouteId,omitempty"`
	RelatedTariffCategoryID *int64     `json:"RelatedTariffCategoryId,omitempty"`
}
