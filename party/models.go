package party

import (
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/types"
)

type Kind string

const (
	KindCustomer Kind = "customer"
	KindVendor   Kind = "vendor"
	KindBoth     Kind = "both"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindCustomer || k == KindVendor || k == KindBoth
}

// Party is a customer or vendor that transactions may reference.
type Party struct {
	types.Entity
	ID       id.PartyID        `json:"id"`
	StoreID  string            `json:"store_id"`
	Kind     Kind              `json:"kind"`
	Name     string            `json:"name"`
	Document string            `json:"document,omitempty"` // tax id (CPF/CNPJ, EIN, ...)
	Email    string            `json:"email,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Archived bool              `json:"archived"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
