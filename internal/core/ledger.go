package core

// SignedAmount converts a user-entered unsigned magnitude and a type
// selection into the stored signed amount: DEBIT (a purchase) increases
// dues, CREDIT (a payment) decreases them. Every entry point must go
// through this function so the sign convention cannot drift between
// screens.
func SignedAmount(t TransactionType, magnitude Money) Money {
	m := magnitude.Abs()
	if t == Credit {
		return m.Neg()
	}
	return m
}

// ApplyNew returns the customer balance after recording a new transaction.
func ApplyNew(balance, amount Money) Money {
	return Money{Paise: balance.Paise + amount.Paise}
}

// ApplyEdit returns the customer balance after a transaction's signed
// amount changes from oldAmount to newAmount: the old effect is removed
// and the new one applied.
func ApplyEdit(balance, oldAmount, newAmount Money) Money {
	return Money{Paise: balance.Paise - oldAmount.Paise + newAmount.Paise}
}

// ApplyDelete returns the customer balance after removing a transaction.
func ApplyDelete(balance, amount Money) Money {
	return Money{Paise: balance.Paise - amount.Paise}
}
