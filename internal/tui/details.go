package tui

import (
	"fmt"
	"strconv"

	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/tools/timeparser"
)

// Row is one labelled line of the reading detail view
type Row struct {
	Label string
	Value string
}

// DetailRows renders a reading for the detail view. Missing relations show "-".
func DetailRows(r *domain.Reading, detector *anomaly.Detector) []Row {
	if r == nil {
		return nil
	}
	rows := []Row{
		{"Reading", "#" + strconv.FormatInt(r.ID, 10)},
		{"Exception", orDash(r.ExceptionType)},
		{"Read on", timeparser.FormatReadingDate(r.ReadingDate)},
		{"Previous reading", formatNumber(r.PreviousReading)},
		{"Current reading", formatNumber(r.CurrentReading)},
		{"Consumption", formatNumber(r.DisplayConsumption())},
	}
	if r.HasAverage() {
		rows = append(rows, Row{"Moving average", formatNumber(*r.Average)})
	} else {
		rows = append(rows, Row{"Moving average", "not available"})
	}
	if detector != nil {
		rows = append(rows, Row{"Deviation", detector.Describe(r).Hint})
	}
	if r.ReadBy != nil {
		rows = append(rows, Row{"Read by", r.ReadBy.Name})
	}

	meter, serial := "-", "-"
	if r.Meter != nil {
		serial = orDash(r.Meter.SerialNumber)
		meter = orDash(r.Meter.Model)
	}
	rows = append(rows, Row{"Meter", serial}, Row{"Model", meter})

	conn := r.Connection()
	if conn == nil {
		rows = append(rows, Row{"Connection", "no active connection"})
		return rows
	}
	rows = append(rows,
		Row{"Connection", fmt.Sprintf("%s (%s)", orDash(conn.ConnectionNumber), conn.Status.Label())},
		Row{"Scheme", domain.RefName(conn.Scheme, "-")},
		Row{"Zone", domain.RefName(conn.Zone, "-")},
		Row{"Route", domain.RefName(conn.Route, "-")},
		Row{"Tariff", domain.RefName(conn.TariffCategory, "-")},
	)
	if c := conn.Customer; c != nil {
		rows = append(rows,
			Row{"Customer", c.Name},
			Row{"Account", orDash(c.AccountNumber)},
			Row{"Phone", orDash(c.Phone)},
			Row{"Balance", c.Balance.StringFixed(2)},
		)
	}
	return rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
