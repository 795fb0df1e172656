package fakeapi

import (
	"time"

	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/shopspring/decimal"
)

// Sandbox credentials
const (
	SandboxEmail    = "operator@example.test"
	SandboxPassword = "sandbox"
)

func float(v float64) *float64 { return &v }

// Seed loads a small billing area: one operator account, field officers, task types
// and three abnormal readings (spike with average, no average, no connection).
func Seed(s *Server) {
	s.AddAccount(SandboxEmail, Account{
		Password: SandboxPassword,
		User:     domain.User{ID: 1, Name: "Console Operator", Email: SandboxEmail, Role: "BILLING_OFFICER"},
	})

	s.SetOptions(
		[]domain.User{
			{ID: 5, Name: "Otieno Field", Email: "otieno@example.test", Role: "FIELD_OFFICER"},
			{ID: 6, Name: "Wanjiru Meter", Email: "wanjiru@example.test", Role: "FIELD_OFFICER"},
		},
		[]domain.TaskType{
			{ID: 1, Name: "Meter Inspection"},
			{ID: 2, Name: "Site Survey"},
			{ID: 3, Name: "Disconnection"},
		},
	)

	readAt := time.Date(2025, 12, 28, 8, 15, 0, 0, time.UTC)
	customer := &domain.Customer{
		ID:            3,
		Name:          "Amina Hassan",
		Phone:         "+254700000003",
		AccountNumber: "ACC-0003",
		Balance:       decimal.RequireFromString("1250.50"),
	}

	s.AddReading(domain.Reading{
		ID:              42,
		PreviousReading: 100,
		CurrentReading:  150,
		Consumption:     float(50),
		ReadingDate:     readAt,
		ExceptionType:   "HIGH_CONSUMPTION",
		Average:         float(120),
		ReadBy:          &domain.User{ID: 5, Name: "Otieno Field"},
		Meter: &domain.Meter{
			ID:           9,
			SerialNumber: "WM-2023-0009",
			Model:        "Kent V100",
			Status:       "ACTIVE",
			Connection: &domain.Connection{
				ID:               7,
				ConnectionNumber: "CN-000007",
				Status:           domain.ConnectionActive,
				Customer:         customer,
				Scheme:           &domain.NamedRef{ID: 1, Name: "Kisumu Central"},
				Zone:             &domain.NamedRef{ID: 11, Name: "North"},
				Route:            &domain.NamedRef{ID: 21, Name: "Route 4"},
				TariffCategory:   &domain.NamedRef{ID: 2, Name: "Domestic"},
			},
		},
	})

	s.AddReading(domain.Reading{
		ID:              43,
		PreviousReading: 900,
		CurrentReading:  880,
		ReadingDate:     readAt,
		ExceptionType:   "NEGATIVE_CONSUMPTION",
		Meter: &domain.Meter{
			ID:           10,
			SerialNumber: "WM-2023-0010",
			Connection: &domain.Connection{
				ID:               8,
				ConnectionNumber: "CN-000008",
				Status:           domain.ConnectionPendingPayment,
				Customer:         &domain.Customer{ID: 4, Name: "Brian Ochieng", AccountNumber: "ACC-0004"},
			},
		},
	})

	s.AddReading(domain.Reading{
		ID:              44,
		PreviousReading: 10,
		CurrentReading:  400,
		ReadingDate:     readAt,
		ExceptionType:   "HIGH_CONSUMPTION",
		Average:         float(35),
		Meter:           &domain.Meter{ID: 11, SerialNumber: "WM-2023-0011", Status: "UNASSIGNED"},
	})
}
