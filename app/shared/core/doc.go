// Package core contains the domain events of the ledger.
//
// Events describe facts that already happened, such as a movement being posted to an account.
// They carry plain values only; serialization lives in the shell package.
package core
