package memory

import (
	"testing"

	"github.com/xraph/cashledger/store"
	"github.com/xraph/cashledger/store/storetest"
)

func TestSuite(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}
