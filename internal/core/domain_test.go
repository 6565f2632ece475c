package core

import (
	"errors"
	"testing"
)

func TestCustomerValidate(t *testing.T) {
	good := Customer{Name: "Ramesh", Village: "Khargone"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Customer{
		{Name: "", Village: "Khargone"},
		{Name: "  ", Village: "Khargone"},
		{Name: "Ramesh", Village: ""},
	}
	for i, c := range bads {
		err := c.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: %v is not a validation error", i, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{CustomerID: "c1", Amount: Money{Paise: 100}, Type: Debit, Description: "seed"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		txn  Transaction
		want error
	}{
		{"missing customer", Transaction{Amount: Money{Paise: 100}, Type: Debit}, ErrMissingCustomer},
		{"zero amount", Transaction{CustomerID: "c1", Type: Debit}, ErrInvalidAmount},
		{"bad type", Transaction{CustomerID: "c1", Amount: Money{Paise: 100}, Type: "TRANSFER"}, ErrInvalidType},
		{"debit with negative sign", Transaction{CustomerID: "c1", Amount: Money{Paise: -100}, Type: Debit}, ErrTypeMismatch},
		{"credit with positive sign", Transaction{CustomerID: "c1", Amount: Money{Paise: 100}, Type: Credit}, ErrTypeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.txn.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}
