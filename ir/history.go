package ir

import "github.com/rs/xid"

// SourceKind is the provenance category of a block's History.
type SourceKind int

const (
	// HistorySourceUnset is the initial value before any pass stamps the
	// block. Distinct from HistorySourceUnknown (§9): Unset gets
	// overwritten by the default end-of-elaboration labelling pass;
	// Unknown is a deliberate "we could not determine provenance" stamp
	// and is left alone.
	HistorySourceUnset SourceKind = iota
	HistorySourceUnknown
	HistorySourceFrontend
	HistorySourceRefinement
	HistorySourceOptimization
)

func (k SourceKind) String() string {
	switch k {
	case HistorySourceUnset:
		return "Unset"
	case HistorySourceUnknown:
		return "Unknown"
	case HistorySourceFrontend:
		return "Frontend"
	case HistorySourceRefinement:
		return "Refinement"
	case HistorySourceOptimization:
		return "Optimization"
	default:
		return "?"
	}
}

// History is a block's provenance record: purely advisory, consulted only
// by diagnostics and the printer package, never by semantics. Predecessors
// form a chain, sometimes a DAG — a block born of optimization can have
// two predecessors.
//
// UID is a globally unique, sortable identifier (github.com/rs/xid) minted
// once at block creation. Block IDs (Block.ID) are only unique within a
// Design's arena and are reused in spirit (monotonically increasing small
// integers) across clones made by ContainerModule splitting; UID lets the
// printer and any diagnostic tooling keep a stable name for a block across
// such a clone.
type History struct {
	Source   SourceKind
	Parents  []*Block
	Metadata string
	UID      xid.ID
}

// NewHistory creates a fresh, unset History with a new UID.
func NewHistory() History {
	return History{Source: HistorySourceUnset, UID: xid.New()}
}

// WithSource returns a copy of h stamped with the given source kind and
// parent blocks.
func (h History) WithSource(kind SourceKind, parents ...*Block) History {
	h.Source = kind
	h.Parents = append([]*Block(nil), parents...)
	return h
}

// WithMetadata returns a copy of h carrying the given free-form note.
func (h History) WithMetadata(metadata string) History {
	h.Metadata = metadata
	return h
}
