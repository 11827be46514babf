package ledger

// AccountID identifies an account in the external registry.
type AccountID = string

// Account is a read-only view of an account registry entry.
type Account struct {
	ID         AccountID
	Number     int
	HolderName string
	Active     bool
}
