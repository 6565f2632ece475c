package core

// RecentTransaction is a transaction joined with its customer, as shown on
// the dashboard.
type RecentTransaction struct {
	Transaction
	CustomerName string
	Village      string
}

// Stats is the compact dashboard summary.
type Stats struct {
	TotalCustomers int
	TotalDues      Money
	Recent         []RecentTransaction
}
