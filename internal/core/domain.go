package core

import (
	"strings"
	"time"
)

const (
	Debit  TransactionType = "DEBIT"
	Credit TransactionType = "CREDIT"
)

// DefaultDescription is stored when a transaction is created without one.
const DefaultDescription = "No description"

type (
	// TransactionType tags a transaction as a purchase (DEBIT, increases
	// dues) or a payment (CREDIT, decreases dues).
	TransactionType string

	// Money is a fixed-point rupee amount stored as signed paise.
	Money struct {
		Paise int64
	}

	// Customer is a ledger account holder. Dues is the running balance of
	// outstanding dues and must always equal the sum of the signed amounts
	// of the customer's transactions. Version guards concurrent balance
	// updates.
	Customer struct {
		ID        string
		Name      string
		Village   string
		Contact   string
		Dues      Money
		Version   int64
		CreatedAt time.Time
	}

	// Transaction is a single signed ledger entry against a customer.
	// Amount carries the sign (positive for DEBIT, negative for CREDIT);
	// the type tag must agree with it.
	Transaction struct {
		ID          string
		CustomerID  string
		Amount      Money
		Type        TransactionType
		Description string
		CreatedAt   time.Time
	}
)

func (t TransactionType) Valid() bool {
	return t == Debit || t == Credit
}

func (m Money) IsZero() bool { return m.Paise == 0 }

// Abs returns the unsigned magnitude.
func (m Money) Abs() Money {
	if m.Paise < 0 {
		return Money{Paise: -m.Paise}
	}
	return m
}

// Neg returns the negated amount.
func (m Money) Neg() Money { return Money{Paise: -m.Paise} }

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return ErrNameTooLong
	}
	if strings.TrimSpace(c.Village) == "" {
		return ErrEmptyVillage
	}
	if len(c.Village) > 100 {
		return ErrVillageTooLong
	}
	if len(c.Contact) > 20 {
		return ErrContactTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.CustomerID) == "" {
		return ErrMissingCustomer
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	// The stored amount is signed; the type tag is redundant with the sign
	// and the two must never disagree.
	if t.Type == Debit && t.Amount.Paise < 0 {
		return ErrTypeMismatch
	}
	if t.Type == Credit && t.Amount.Paise > 0 {
		return ErrTypeMismatch
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}
