package cashledger

import "github.com/xraph/cashledger/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Date is re-exported from types package.
type Date = types.Date

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money and Date constructors
var (
	BRL        = types.BRL
	USD        = types.USD
	EUR        = types.EUR
	JPY        = types.JPY
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMoney = types.ParseMoney
	ParseDate  = types.ParseDate
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
