// Package sequence layers presentation on top of the raw per-tenant counters:
// the durable increment lives in repository.SequenceRepository, this package
// only decides how a raw integer reads on a document.
package sequence

import "fmt"

// Kind selects an independent counter stream.
type Kind string

const (
	KindSession     Kind = "session"
	KindTransaction Kind = "transaction"
)

var prefixes = map[Kind]string{
	KindSession:     "CS",
	KindTransaction: "TR",
}

// Format renders a raw sequence value as a document number, e.g. TR-2026-00042.
func Format(kind Kind, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefixes[kind], year, value)
}
