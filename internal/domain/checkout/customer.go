// internal/domain/checkout/customer.go
package checkout

import (
	"fmt"
	"strings"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/contact"
)

// Customer is the delivery contact collected at checkout
type Customer struct {
	order.Contact
	order.Address
}

// Normalize trims every field and validates email, phone and ZIP
func (c *Customer) Normalize() error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.AddressLine1 = strings.TrimSpace(c.AddressLine1)
	c.AddressLine2 = strings.TrimSpace(c.AddressLine2)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	c.DeliveryNotes = strings.TrimSpace(c.DeliveryNotes)

	switch {
	case c.FirstName == "" || c.LastName == "":
		return fmt.Errorf("%w: first and last name are required", ErrInvalidCustomer)
	case c.AddressLine1 == "" || c.City == "" || c.State == "":
		return fmt.Errorf("%w: street address, city and state are required", ErrInvalidCustomer)
	}

	var err error
	if c.Email, err = contact.NormalizeEmail(c.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}
	if c.Phone, err = contact.NormalizePhone(c.Phone); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}
	if c.Zip, err = contact.NormalizeZip(c.Zip); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}
	return nil
}
