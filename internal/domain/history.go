package domain

// DefaultHistoryCapacity is the number of scan codes kept for recall
const DefaultHistoryCapacity = 50

// ScanHistory is a bounded, oldest-first record of accepted scan codes with
// a recall cursor. After every append the cursor points one past the end.
type ScanHistory struct {
	capacity int
	entries  []string
	cursor   int
}

// NewScanHistory creates a history holding at most capacity entries
func NewScanHistory(capacity int) *ScanHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &ScanHistory{
		capacity: capacity,
		entries:  make([]string, 0, capacity),
	}
}

// Record appends a code, evicting the oldest entry when full
func (h *ScanHistory) Record(code string) {
	h.entries = append(h.entries, code)
	if len(h.entries) > h.capacity {
		h.entries = append(h.entries[:0:0], h.entries[len(h.entries)-h.capacity:]...)
	}
	h.cursor = len(h.entries)
}

// Previous moves the cursor back one entry. It stops at the oldest entry.
func (h *ScanHistory) Previous() (string, bool) {
	if h.cursor > 0 {
		h.cursor--
		return h.entries[h.cursor], true
	}
	return "", false
}

// Next moves the cursor forward. Moving past the newest entry parks the
// cursor one past the end and recalls nothing.
func (h *ScanHistory) Next() (string, bool) {
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	h.cursor = len(h.entries)
	return "", false
}

// Entries returns a copy of the codes, oldest first
func (h *ScanHistory) Entries() []string {
	return append(make([]string, 0, len(h.entries)), h.entries...)
}

func (h *ScanHistory) Cursor() int   { return h.cursor }
func (h *ScanHistory) Len() int      { return len(h.entries) }
func (h *ScanHistory) Capacity() int { return h.capacity }
