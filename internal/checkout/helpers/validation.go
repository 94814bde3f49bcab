package helpers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// DeliveryInfo is the buyer-provided contact and shipping data copied onto
// every order of a checkout.
type DeliveryInfo struct {
	FullName string
	Phone    string
	Address  string
	Comment  *string
}

// Normalize trims surrounding whitespace and drops an empty comment.
func (d DeliveryInfo) Normalize() DeliveryInfo {
	out := DeliveryInfo{
		FullName: strings.TrimSpace(d.FullName),
		Phone:    strings.TrimSpace(d.Phone),
		Address:  strings.TrimSpace(d.Address),
	}
	if d.Comment != nil {
		if c := strings.TrimSpace(*d.Comment); c != "" {
			out.Comment = &c
		}
	}
	return out
}

// ValidateDelivery checks field lengths in characters.
func ValidateDelivery(d DeliveryInfo) error {
	details := map[string]string{}
	checkLength(details, "full_name", d.FullName, 2, 255)
	checkLength(details, "phone", d.Phone, 5, 50)
	checkLength(details, "address", d.Address, 5, 1000)
	if d.Comment != nil {
		checkLength(details, "comment", *d.Comment, 0, 1000)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery details").WithDetails(details)
	}
	return nil
}

func checkLength(details map[string]string, field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n < min:
		details[field] = fmt.Sprintf("must be at least %d characters", min)
	case n > max:
		details[field] = fmt.Sprintf("must be at most %d characters", max)
	}
}
