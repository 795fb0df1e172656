package anomaly

import (
	"errors"
	"fmt"

	"github.com/septivank/meter-resolution-console/internal/domain"
)

// Detector describes how far a reading's consumption is from its moving average
type Detector struct {
	spikeThreshold float64
}

// NewDetector creates a new detector with the configured spike threshold
func NewDetector(spikeThreshold float64) *Detector {
	if spikeThreshold <= 0 {
		spikeThreshold = 3.0
	}
	return &Detector{spikeThreshold: spikeThreshold}
}

// Deviation is the hint shown next to an abnormal reading
type Deviation struct {
	Known bool
	Ratio float64
	Spike bool
	Hint  string
}

// Describe compares the reading's consumption with its moving average
func (d *Detector) Describe(r *domain.Reading) Deviation {
	if r == nil {
		return Deviation{Hint: "no reading"}
	}
	consumption := r.DisplayConsumption()

	// Check for negative consumption
	if consumption < 0 {
		return Deviation{Known: true, Hint: "negative consumption: current reading is below the previous reading"}
	}
	if !r.HasAverage() {
		return Deviation{Hint: "no moving average available"}
	}

	average := *r.Average
	if average <= 0 {
		if consumption == 0 {
			return Deviation{Known: true, Ratio: 1, Hint: "matches moving average"}
		}
		return Deviation{Known: true, Spike: true, Hint: fmt.Sprintf("consumption %.2f against a zero moving average", consumption)}
	}

	ratio := consumption / average
	dev := Deviation{Known: true, Ratio: ratio}
	switch {
	case ratio > d.spikeThreshold:
		dev.Spike = true
		dev.Hint = fmt.Sprintf("sudden spike: consumption %.2f is %.1fx the moving average %.2f", consumption, ratio, average)
	case consumption == 0:
		dev.Hint = fmt.Sprintf("zero consumption against a moving average of %.2f", average)
	default:
		dev.Hint = fmt.Sprintf("%.1fx moving average (%.2f)", ratio, average)
	}
	return dev
}

// Decrease policies
const (
	PolicyAllow  = "allow"
	PolicyWarn   = "warn"
	PolicyReject = "reject"
)

// ValidPolicy reports whether policy names one of the decrease policies
func ValidPolicy(policy string) bool {
	switch policy {
	case PolicyAllow, PolicyWarn, PolicyReject:
		return true
	}
	return false
}

// ErrReadingDecrease is returned under the reject policy
var ErrReadingDecrease = errors.New("current reading cannot be lower than the previous reading")

// CheckDecrease applies the correction policy for a current reading below the previous
// one. It returns a warning under the warn policy and an error under reject.
func CheckDecrease(policy string, previous, current float64) (string, error) {
	if current >= previous {
		return "", nil
	}
	switch policy {
	case PolicyReject:
		return "", ErrReadingDecrease
	case PolicyWarn:
		return fmt.Sprintf("current reading %.2f is lower than the previous reading %.2f", current, previous), nil
	default:
		return "", nil
	}
}
