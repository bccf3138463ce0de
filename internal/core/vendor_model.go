package core

import (
	"context"
	"time"
)

// Vendor is a supplier that items can default to for reordering.
type Vendor struct {
	ID            int       `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// VendorInput holds the fields required to create a new vendor.
type VendorInput struct {
	Code          string `json:"code" jsonschema:"required"`
	Name          string `json:"name" jsonschema:"required"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// VendorService provides vendor master data operations.
type VendorService interface {
	// CreateVendor creates a new vendor record.
	CreateVendor(ctx context.Context, input VendorInput) (*Vendor, error)

	// GetVendors returns all active vendors.
	GetVendors(ctx context.Context) ([]Vendor, error)

	// GetVendor returns a vendor by id.
	GetVendor(ctx context.Context, id int) (*Vendor, error)

	// GetVendorByCode returns a specific vendor by its code.
	GetVendorByCode(ctx context.Context, code string) (*Vendor, error)
}
