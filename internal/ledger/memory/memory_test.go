package memory

import (
	"testing"

	"fintrack/internal/ledger"
	"fintrack/internal/ledger/ledgertest"
)

func TestStoreContract(t *testing.T) {
	ledgertest.RunStoreContract(t, func(t *testing.T) ledger.Store { return New() })
}
