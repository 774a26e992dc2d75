package graph

// OwnerKind distinguishes what a provenance row points at.
type OwnerKind string

// OwnerKind values.
const (
	OwnerEntity       OwnerKind = "entity"
	OwnerRelationship OwnerKind = "relationship"
)

// Provenance links a graph entity or relationship to the document chunk that
// supported it. An entity mentioned in several chunks accumulates one row per
// (document, chunk) pair; "replace" cleanup deletes a document's rows and
// sweeps nodes left with no remaining support.
type Provenance struct {
	ownerKind  OwnerKind
	ownerID    string
	kbID       string
	documentID string
	chunkID    string
}

// NewProvenance creates a Provenance reference.
func NewProvenance(ownerKind OwnerKind, ownerID, kbID, documentID, chunkID string) Provenance {
	return Provenance{
		ownerKind:  ownerKind,
		ownerID:    ownerID,
		kbID:       kbID,
		documentID: documentID,
		chunkID:    chunkID,
	}
}

// OwnerKind returns whether this row supports an entity or a relationship.
func (p Provenance) OwnerKind() OwnerKind { return p.ownerKind }

// OwnerID returns the supported entity or relationship ID.
func (p Provenance) OwnerID() string { return p.ownerID }

// KBID returns the owning knowledge base ID.
func (p Provenance) KBID() string { return p.kbID }

// DocumentID returns the supporting document ID.
func (p Provenance) DocumentID() string { return p.documentID }

// ChunkID returns the supporting chunk ID.
func (p Provenance) ChunkID() string { return p.chunkID }
