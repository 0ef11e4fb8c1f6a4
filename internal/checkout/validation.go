package checkout

import (
	"strings"

	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
)

// validateShipping normalizes and checks the shipping payload. The returned
// copy has whitespace trimmed and the country code upper-cased.
func validateShipping(input CheckoutInput) (CheckoutInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Address1 = strings.TrimSpace(input.Address1)
	input.City = strings.TrimSpace(input.City)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.Country = strings.ToUpper(strings.TrimSpace(input.Country))
	input.Phone = trimPtr(input.Phone)
	input.Address2 = trimPtr(input.Address2)

	problems := map[string]string{}
	if input.Name == "" {
		problems["name"] = "required"
	}
	switch {
	case input.Email == "":
		problems["email"] = "required"
	case !strings.Contains(input.Email, "@"):
		problems["email"] = "must be a valid email address"
	}
	if input.Address1 == "" {
		problems["address1"] = "required"
	}
	if input.City == "" {
		problems["city"] = "required"
	}
	if input.PostalCode == "" {
		problems["postal_code"] = "required"
	}
	switch {
	case input.Country == "":
		problems["country"] = "required"
	case len(input.Country) != 2:
		problems["country"] = "must be a two-letter ISO code"
	}

	if len(problems) > 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping details").
			WithDetails(problems)
	}
	return input, nil
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
