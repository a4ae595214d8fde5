package session

// EntryKind classifies a transcript line.
type EntryKind int

const (
	EntryUser EntryKind = iota
	EntryBot
	EntryPending
	EntryNote
)

// Entry is one transcript bubble. Token is set only on pending entries.
type Entry struct {
	Kind  EntryKind
	Text  string
	Token string
}

// Transcript is the ordered conversation log shown to the user.
type Transcript struct {
	entries []Entry
}

func (t *Transcript) append(e Entry) {
	t.entries = append(t.entries, e)
}

// removePending deletes the pending entry carrying token. Returns false
// when no such entry exists, e.g. the transcript was cleared meanwhile.
func (t *Transcript) removePending(token string) bool {
	for i, e := range t.entries {
		if e.Kind == EntryPending && e.Token == token {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Transcript) clear() {
	t.entries = nil
}

// Entries returns a copy of the transcript.
func (t Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t Transcript) Len() int {
	return len(t.entries)
}

// PendingCount returns how many placeholders are outstanding.
func (t Transcript) PendingCount() int {
	n := 0
	for _, e := range t.entries {
		if e.Kind == EntryPending {
			n++
		}
	}
	return n
}
