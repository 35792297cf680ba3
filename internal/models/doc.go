// Package models defines the core domain models for Centsible.
//
// The ledger-facing models:
//   - Expense: an immutable shared cost, split across group members
//   - SplitAllocation: one member's computed share of an expense
//   - Payment: an immutable settle-up transfer between two members
//
// The surrounding application models:
//   - User: registered account, identified by email
//   - Group: a set of members sharing expenses, joined via a short code
//   - Activity: a read-only feed entry derived from expenses and payments
//
// Expenses and payments are append-only: once recorded they are never
// updated or deleted, and the pairwise balances maintained by the ledger
// package are fully derivable from their history. Amounts are integer minor
// units throughout; relationships use ID strings rather than pointers.
package models
