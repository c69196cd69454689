package cashledger

import "github.com/xraph/cashledger/id"

// ID is the primary identifier type for all cashledger entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
