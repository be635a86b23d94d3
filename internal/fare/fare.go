package fare

import (
	"errors"

	"github.com/metroplanner/pkg/network/models"
)

var ErrPolicyMissing = errors.New("fare policy not configured")

const metersPerKm = 1000

type Calculator struct {
	policy *models.FarePolicy
}

// NewCalculator wraps a loaded policy. A nil policy is accepted; every
// calculation then fails with ErrPolicyMissing.
func NewCalculator(policy *models.FarePolicy) *Calculator {
	return &Calculator{policy: policy}
}

// CalculateMinor returns the fare in minor currency units. Distance is billed
// per started kilometer.
func (c *Calculator) CalculateMinor(distanceMeters, interchanges int) (int64, error) {
	if c == nil || c.policy == nil {
		return 0, ErrPolicyMissing
	}

	km := int64((distanceMeters + metersPerKm - 1) / metersPerKm)

	amount := c.policy.BaseFare
	amount += km * c.policy.PerKmRate
	amount += int64(interchanges) * c.policy.InterchangeFee
	return amount, nil
}

// Calculate returns the fare in major currency units.
func (c *Calculator) Calculate(distanceMeters, interchanges int) (float64, error) {
	minor, err := c.CalculateMinor(distanceMeters, interchanges)
	if err != nil {
		return 0, err
	}
	return float64(minor) / 100, nil
}
