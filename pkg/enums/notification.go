package enums

import "fmt"

// NotificationType is the kind of in-app notification shown to a user.
// Values mirror notification_type_enum.
type NotificationType string

const (
	// NotificationTypeNewOrder goes to a seller when checkout creates an
	// order for them.
	NotificationTypeNewOrder NotificationType = "NEW_ORDER"
	// NotificationTypeNewReview goes to a seller when a buyer reviews one of
	// their products.
	NotificationTypeNewReview NotificationType = "NEW_REVIEW"
)

func (n NotificationType) IsValid() bool {
	switch n {
	case NotificationTypeNewOrder, NotificationTypeNewReview:
		return true
	}
	return false
}

func (n NotificationType) String() string { return string(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	if n := NotificationType(value); n.IsValid() {
		return n, nil
	}
	return "", fmt.Errorf("unknown notification type %q", value)
}
