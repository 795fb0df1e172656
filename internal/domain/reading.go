package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConnectionStatus is the lifecycle state of a service connection
type ConnectionStatus string

const (
	ConnectionActive            ConnectionStatus = "ACTIVE"
	ConnectionDisconnected      ConnectionStatus = "DISCONNECTED"
	ConnectionPendingPayment    ConnectionStatus = "PENDING_PAYMENT"
	ConnectionPendingConnection ConnectionStatus = "PENDING_CONNECTION"
	ConnectionPendingMeter      ConnectionStatus = "PENDING_METER"
	ConnectionDormant           ConnectionStatus = "DORMANT"
)

// Valid reports whether the status is one the billing API knows about
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionActive, ConnectionDisconnected, ConnectionPendingPayment,
		ConnectionPendingConnection, ConnectionPendingMeter, ConnectionDormant:
		return true
	}
	return false
}

// Label returns a human readable status
func (s ConnectionStatus) Label() string {
	switch s {
	case ConnectionActive:
		return "Active"
	case ConnectionDisconnected:
		return "Disconnected"
	case ConnectionPendingPayment:
		return "Pending payment"
	case ConnectionPendingConnection:
		return "Pending connection"
	case ConnectionPendingMeter:
		return "Pending meter"
	case ConnectionDormant:
		return "Dormant"
	case "":
		return "Unknown"
	}
	return string(s)
}

// NamedRef is a lightweight reference to a scheme, zone, route or tariff category
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Customer owns a connection. The resolution workflow never mutates it.
type Customer struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
}

// Connection is a metered service point
type Connection struct {
	ID               int64            `json:"id"`
	ConnectionNumber string           `json:"connectionNumber"`
	Status           ConnectionStatus `json:"status"`
	Customer         *Customer        `json:"customer,omitempty"`
	Scheme           *NamedRef        `json:"scheme,omitempty"`
	Zone             *NamedRef        `json:"zone,omitempty"`
	Route            *NamedRef        `json:"route,omitempty"`
	TariffCategory   *NamedRef        `json:"tariffCategory,omitempty"`
}

// Meter is a physical meter with at most one active connection
type Meter struct {
	ID           int64       `json:"id"`
	SerialNumber string      `json:"serialNumber"`
	Model        string      `json:"model"`
	Status       string      `json:"status"`
	Connection   *Connection `json:"connection,omitempty"`
}

// Reading is an abnormal meter reading together with its relations and moving average
type Reading struct {
	ID              int64     `json:"id"`
	PreviousReading float64   `json:"previousReading"`
	CurrentReading  float64   `json:"currentReading"`
	Consumption     *float64  `json:"consumption,omitempty"`
	ReadingDate     time.Time `json:"readingDate"`
	Notes           string    `json:"notes,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	ExceptionType   string    `json:"exceptionType,omitempty"`
	Average         *float64  `json:"average,omitempty"`
	Meter           *Meter    `json:"meter,omitempty"`
	ReadBy          *User     `json:"readBy,omitempty"`
}

// HasAverage reports whether the server supplied a moving average
func (r *Reading) HasAverage() bool {
	return r != nil && r.Average != nil
}

// Connection returns the meter's connection or nil
func (r *Reading) Connection() *Connection {
	if r == nil || r.Meter == nil {
		return nil
	}
	return r.Meter.Connection
}

// ConnectionID returns the linked connection id when one is known
func (r *Reading) ConnectionID() (int64, bool) {
	conn := r.Connection()
	if conn == nil || conn.ID == 0 {
		return 0, false
	}
	return conn.ID, true
}

// MeterID returns the linked meter id when one is known
func (r *Reading) MeterID() (int64, bool) {
	if r == nil || r.Meter == nil || r.Meter.ID == 0 {
		return 0, false
	}
	return r.Meter.ID, true
}

// Customer returns the customer behind the connection or nil
func (r *Reading) Customer() *Customer {
	conn := r.Connection()
	if conn == nil {
		return nil
	}
	return conn.Customer
}

// DisplayConsumption returns the server computed consumption, falling back to the
// difference between the two readings.
func (r *Reading) DisplayConsumption() float64 {
	if r == nil {
		return 0
	}
	if r.Consumption != nil {
		return *r.Consumption
	}
	return r.CurrentReading - r.PreviousReading
}

// RefName returns the ref's name or the fallback
func RefName(ref *NamedRef, fallback string) string {
	if ref == nil || ref.Name == "" {
		return fallback
	}
	return ref.Name
}
