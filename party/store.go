package party

import (
	"context"
	"strings"

	"github.com/xraph/cashledger/id"
)

type Store interface {
	CreateParty(ctx context.Context, p *Party) error
	GetParty(ctx context.Context, partyID id.PartyID) (*Party, error)
	ListParties(ctx context.Context, storeID string, opts ListOpts) ([]*Party, error)
	UpdateParty(ctx context.Context, p *Party) error
}

type ListOpts struct {
	Kind            Kind
	Search          string // case-insensitive substring of name or document
	IncludeArchived bool
	Limit           int
	Offset          int
}

// Matches reports whether p passes every filter in o.
func (o ListOpts) Matches(p *Party) bool {
	if p.Archived && !o.IncludeArchived {
		return false
	}
	if o.Kind != "" && p.Kind != o.Kind && p.Kind != KindBoth {
		return false
	}
	if o.Search != "" {
		q := strings.ToLower(o.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Document), q) {
			return false
		}
	}
	return true
}
