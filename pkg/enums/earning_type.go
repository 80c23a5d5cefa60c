package enums

import "fmt"

// EarningType tags the payout variant a ledger entry settles.
type EarningType string

const (
	EarningTypeOrderVendorPayout  EarningType = "order_vendor_payout"
	EarningTypeRiderPayout        EarningType = "rider_payout"
	EarningTypeReferralCommission EarningType = "referral_commission"
)

var validEarningTypes = []EarningType{
	EarningTypeOrderVendorPayout,
	EarningTypeRiderPayout,
	EarningTypeReferralCommission,
}

// IsValid reports whether the value is a known EarningType.
func (t EarningType) IsValid() bool {
	for _, candidate := range validEarningTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseEarningType converts raw input into an EarningType.
func ParseEarningType(value string) (EarningType, error) {
	for _, candidate := range validEarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning type %q", value)
}
