package enums

import "fmt"

// UserCouponStatus tracks the lifecycle of a coupon issued to a user.
type UserCouponStatus string

const (
	UserCouponStatusAvailable UserCouponStatus = "available"
	UserCouponStatusUsed      UserCouponStatus = "used"
	UserCouponStatusExpired   UserCouponStatus = "expired"
)

var validUserCouponStatuses = []UserCouponStatus{
	UserCouponStatusAvailable,
	UserCouponStatusUsed,
	UserCouponStatusExpired,
}

// String implements fmt.Stringer.
func (s UserCouponStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known UserCouponStatus.
func (s UserCouponStatus) IsValid() bool {
	for _, candidate := range validUserCouponStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUserCouponStatus converts raw input into a UserCouponStatus.
func ParseUserCouponStatus(value string) (UserCouponStatus, error) {
	for _, candidate := range validUserCouponStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user coupon status %q", value)
}
