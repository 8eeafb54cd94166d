package sdcard

// MaxEntries is the capacity of the directory arena
const MaxEntries = 32

// Links hold the arena slot plus one so the zero value is an empty list
const noEntry = 0

// Entry is one file in the card directory
type Entry struct {
	StartBlock uint32 // First block of the file
	FileSize   uint32 // Size in bytes
	Name       string
	next       int16
}

// Directory is the file list read from block 0. Entries live in a
// fixed arena and are linked by index in on-media order.
type Directory struct {
	entries [MaxEntries]Entry
	count   int
	head    int16
	tail    int16
}

func (d *Directory) entry(link int16) *Entry {
	return &d.entries[link-1]
}

func (d *Directory) reset() {
	for i := 0; i < d.count; i++ {
		d.entries[i] = Entry{}
	}
	d.count = 0
	d.head = noEntry
	d.tail = noEntry
}

func (d *Directory) add(e Entry) bool {
	if d.count >= MaxEntries {
		return false
	}
	link := int16(d.count + 1)
	e.next = noEntry
	d.entries[d.count] = e
	d.count++
	if d.tail == noEntry {
		d.head = link
	} else {
		d.entry(d.tail).next = link
	}
	d.tail = link
	return true
}

// FileAtIndex returns the file at the given position in the list
func (d *Directory) FileAtIndex(index int) (Entry, bool) {
	if index < 0 {
		return Entry{}, false
	}
	link := d.head
	for ; link != noEntry && index > 0; index-- {
		link = d.entry(link).next
	}
	if link == noEntry {
		return Entry{}, false
	}
	return *d.entry(link), true
}

// FileCount returns the number of files
func (d *Directory) FileCount() int {
	count := 0
	for link := d.head; link != noEntry; link = d.entry(link).next {
		count++
	}
	return count
}

// FindFile looks a file up by name
func (d *Directory) FindFile(name string) (Entry, bool) {
	for link := d.head; link != noEntry; link = d.entry(link).next {
		if e := d.entry(link); e.Name == name {
			return *e, true
		}
	}
	return Entry{}, false
}

// ForEach calls fn for every file in order until fn returns false
func (d *Directory) ForEach(fn func(index int, e Entry) bool) {
	index := 0
	for link := d.head; link != noEntry; link = d.entry(link).next {
		if !fn(index, *d.entry(link)) {
			return
		}
		index++
	}
}
