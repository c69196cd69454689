package party

import "testing"

func TestListOptsMatches(t *testing.T) {
	acme := &Party{Name: "ACME Supplies", Document: "12.345.678/0001-90", Kind: KindVendor}
	both := &Party{Name: "Bar do Zé", Kind: KindBoth}
	gone := &Party{Name: "Old Tenant", Kind: KindCustomer, Archived: true}

	tests := []struct {
		name  string
		opts  ListOpts
		party *Party
		want  bool
	}{
		{"empty", ListOpts{}, acme, true},
		{"kind match", ListOpts{Kind: KindVendor}, acme, true},
		{"kind miss", ListOpts{Kind: KindCustomer}, acme, false},
		{"both matches any kind", ListOpts{Kind: KindCustomer}, both, true},
		{"search name", ListOpts{Search: "acme"}, acme, true},
		{"search document", ListOpts{Search: "0001"}, acme, true},
		{"search miss", ListOpts{Search: "zzz"}, acme, false},
		{"archived hidden", ListOpts{}, gone, false},
		{"archived included", ListOpts{IncludeArchived: true}, gone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Matches(tt.party); got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}
