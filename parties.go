package cashledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
	"github.com/xraph/cashledger/types"
)

// CreatePartyInput describes a customer or vendor.
type CreatePartyInput struct {
	StoreID  string
	Kind     party.Kind
	Name     string
	Document string
	Email    string
	Phone    string
	Notes    string
	Metadata map[string]string
	Actor    string
}

// CreateParty registers a counterparty for a store.
func (l *Ledger) CreateParty(ctx context.Context, in CreatePartyInput) (*party.Party, error) {
	in.StoreID = strings.TrimSpace(in.StoreID)
	in.Name = strings.TrimSpace(in.Name)

	if err := requireStore(in.StoreID); err != nil {
		return nil, err
	}
	if !in.Kind.IsValid() {
		return nil, invalid("kind", "unknown kind %q", in.Kind)
	}
	if in.Name == "" {
		return nil, invalid("name", "is required")
	}

	p := &party.Party{
		Entity:   types.NewEntity(in.Actor),
		ID:       id.NewPartyID(),
		StoreID:  in.StoreID,
		Kind:     in.Kind,
		Name:     in.Name,
		Document: strings.TrimSpace(in.Document),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Notes:    strings.TrimSpace(in.Notes),
		Metadata: in.Metadata,
	}
	if err := l.store.CreateParty(ctx, p); err != nil {
		return nil, fmt.Errorf("create party: %w", err)
	}

	l.plugins.EmitPartyCreated(ctx, p)
	return p, nil
}

// GetParty returns a party of storeID.
func (l *Ledger) GetParty(ctx context.Context, storeID string, partyID id.PartyID) (*party.Party, error) {
	p, err := l.store.GetParty(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if err := checkScope(storeID, p.StoreID); err != nil {
		return nil, err
	}
	return p, nil
}

// ListParties lists the parties of one store.
func (l *Ledger) ListParties(ctx context.Context, storeID string, opts party.ListOpts) ([]*party.Party, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	return l.store.ListParties(ctx, storeID, opts)
}

// UpdatePartyInput changes the non-nil fields of a party.
type UpdatePartyInput struct {
	StoreID  string
	PartyID  id.PartyID
	Kind     *party.Kind
	Name     *string
	Document *string
	Email    *string
	Phone    *string
	Notes    *string
}

// UpdateParty edits a party's contact details.
func (l *Ledger) UpdateParty(ctx context.Context, in UpdatePartyInput) (*party.Party, error) {
	p, err := l.GetParty(ctx, in.StoreID, in.PartyID)
	if err != nil {
		return nil, err
	}

	if in.Kind != nil {
		if !in.Kind.IsValid() {
			return nil, invalid("kind", "unknown kind %q", *in.Kind)
		}
		p.Kind = *in.Kind
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "is required")
		}
		p.Name = name
	}
	if in.Document != nil {
		p.Document = strings.TrimSpace(*in.Document)
	}
	if in.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		p.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}

	p.Touch()
	if err := l.store.UpdateParty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ArchiveParty hides a party from listings and blocks it as a new
// counterparty. Existing transactions keep their reference.
func (l *Ledger) ArchiveParty(ctx context.Context, storeID string, partyID id.PartyID) (*party.Party, error) {
	p, err := l.GetParty(ctx, storeID, partyID)
	if err != nil {
		return nil, err
	}
	if p.Archived {
		return p, nil
	}
	p.Archived = true
	p.Touch()
	if err := l.store.UpdateParty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
