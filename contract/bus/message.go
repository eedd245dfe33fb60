package bus

// Entry is a (priority, handler) pair stored in a bus registry.
// Higher priorities run first.
type Entry struct {
	Priority int
	Handler  Handler
}

func (e Entry) Entries() []Entry { return []Entry{e} }

// EntryList is a list of prioritized entries.
type EntryList []Entry

func (l EntryList) Entries() []Entry { return append([]Entry(nil), l...) }

// WithPriority pairs a handler with a priority.
func WithPriority(priority int, h Handler) Entry {
	return Entry{Priority: priority, Handler: h}
}

// Input is what Register accepts: Handler, Handlers, Entry or EntryList.
// Implementations resolve to entries once, at the registration boundary.
type Input interface {
	Entries() []Entry
}

var (
	_ Input = Handler(nil)
	_ Input = Handlers(nil)
	_ Input = Entry{}
	_ Input = EntryList(nil)
)
