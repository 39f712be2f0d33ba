package recorder

import (
	"fmt"
	"io"
	"sync"
)

// Recorder accumulates the records of one build so all problems are
// reported together.
type Recorder[T Record] interface {
	Record(r T)
	Get() Records
	Print(w io.Writer)
}

type recorder[T Record] struct {
	m       sync.RWMutex
	records records[T]
}

func New[T Record]() Recorder[T] {
	return &recorder[T]{records: records[T]{}}
}

func (r *recorder[T]) Record(rec T) {
	if rec.GetSeverity() == Severity_NONE {
		return
	}
	r.m.Lock()
	defer r.m.Unlock()
	r.records = append(r.records, rec)
}

// Get returns a snapshot of the records.
func (r *recorder[T]) Get() Records {
	r.m.RLock()
	defer r.m.RUnlock()
	return append(records[T]{}, r.records...)
}

// Print writes one line per record, prefixed with its severity.
func (r *recorder[T]) Print(w io.Writer) {
	r.m.RLock()
	defer r.m.RUnlock()
	for _, d := range r.records {
		fmt.Fprintf(w, "%s: %s\n", d.GetSeverity(), recordError(d))
	}
}
