// Package accounts stores each user's portfolio document: their list
// of accounts and any manual asset breakdowns.
package accounts

import "encoding/json"

// Document is the whole-document unit the front end saves and loads.
// The server treats both fields as opaque JSON - the client owns the
// shape, the server owns persistence and ownership.
type Document struct {
	Accounts         json.RawMessage `json:"accounts"`
	ManualBreakdowns json.RawMessage `json:"manualBreakdowns"`
}

// EmptyDocument is what a user who has never saved gets back.
func EmptyDocument() Document {
	return Document{
		Accounts:         json.RawMessage("[]"),
		ManualBreakdowns: json.RawMessage("{}"),
	}
}
