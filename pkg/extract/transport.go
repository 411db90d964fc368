package extract

import (
	"github.com/fumiya-kume/secpatch/pkg/catalog"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

// Signals are the whole-fragment socket-operation flags
type Signals struct {
	Connect bool
	Read    bool
	Write   bool
	Sites   []Site
}

// Any reports whether at least one operation was detected
func (s Signals) Any() bool {
	return s.Connect || s.Read || s.Write
}

// Active returns the flags keyed by operation
func (s Signals) Active() map[catalog.SocketOp]bool {
	return map[catalog.SocketOp]bool{
		catalog.SocketConnect: s.Connect,
		catalog.SocketRead:    s.Read,
		catalog.SocketWrite:   s.Write,
	}
}

// Ops lists the active operations in connect, read, write order
func (s Signals) Ops() []catalog.SocketOp {
	active := s.Active()
	var ops []catalog.SocketOp
	for _, op := range catalog.SocketOps() {
		if active[op] {
			ops = append(ops, op)
		}
	}
	return ops
}

// TransportSignals tests every transport detector independently against the
// whole fragment
func TransportSignals(cat *catalog.Catalog, fragment string) (Signals, []error) {
	var (
		signals Signals
		diags   []error
	)

	for _, d := range cat.TransportDetectors() {
		matches, err := run(d, fragment)
		if err != nil {
			diags = append(diags, errors.PatternError(d.Name, err))
			continue
		}
		if len(matches) == 0 {
			continue
		}

		switch catalog.SocketOp(d.SubKind) {
		case catalog.SocketConnect:
			signals.Connect = true
		case catalog.SocketRead:
			signals.Read = true
		case catalog.SocketWrite:
			signals.Write = true
		}
		signals.Sites = append(signals.Sites, sitesFor(d, fragment, matches)...)
	}

	return signals, diags
}
