package main

import "github.com/contacorrente/ledger/ledger"

// demoAccounts is the account registry used by -seed. Three accounts are active and three inactive.
func demoAccounts() []ledger.Account {
	return []ledger.Account{
		{ID: "B6BAFC09-6967-ED11-A567-055DFA4A16C9", Number: 123, HolderName: "Katherine Sanchez", Active: true},
		{ID: "FA99D033-7067-ED11-96C6-7C5DFA4A16C9", Number: 456, HolderName: "Eva Woodward", Active: true},
		{ID: "382D323D-7067-ED11-8866-7D5DFA4A16C9", Number: 789, HolderName: "Tevin Mcconnell", Active: true},
		{ID: "F475F943-7067-ED11-A06B-7E5DFA4A16C9", Number: 741, HolderName: "Ameena Lynn", Active: false},
		{ID: "BCDACA4A-7067-ED11-AF81-825DFA4A16C9", Number: 852, HolderName: "Jarrad Mckee", Active: false},
		{ID: "D2E02051-7067-ED11-94C0-835DFA4A16C9", Number: 963, HolderName: "Elisha Simons", Active: false},
	}
}
