package model

// MessageRecord is one message's display metadata within an account.
type MessageRecord struct {
	// UID is the server-assigned identifier, unique only within Account.
	UID string

	// Account is the name of the account the message belongs to.
	Account string

	// From is the sender's display name, or the raw From value when no
	// display name could be extracted.
	From string

	Subject string

	// Date is the formatted local send time, empty when unparsable.
	Date string

	// Seen reports whether the server has the \Seen flag for the message.
	Seen bool

	// Marked is the pending-deletion mark. It is set only by the user.
	Marked bool

	// Serial is the 1-based position within the account's list.
	Serial int

	// SerialWidth is the zero-pad width for Serial.
	SerialWidth int
}

// Counts holds the mailbox totals reported by STATUS.
type Counts struct {
	Total  int
	Unseen int
}

// AccountResult is the outcome of polling one account.
type AccountResult struct {
	// Account is the account name; Messages all carry the same name.
	Account string

	// Counts is nil when counts were not requested or the poll failed.
	Counts *Counts

	Messages []MessageRecord

	// Failed marks a poll that did not complete. Messages is then empty
	// and Err carries the reason.
	Failed bool
	Err    error
}

// SerialWidth returns the width needed to print serials 1..n,
// never less than two.
func SerialWidth(n int) int {
	w := 1
	for n >= 10 {
		n /= 10
		w++
	}
	if w < 2 {
		return 2
	}
	return w
}
