package operation

// Operation is a backend request kind the connector can route.
type Operation string

// Supported operations.
const (
	// Retrieve fetches a single record by identifier.
	Retrieve Operation = "retrieve"
	// Similar finds records similar to the identified one.
	Similar Operation = "similar"
)

// All lists every supported operation.
func All() []Operation {
	return []Operation{Retrieve, Similar}
}

// IsValid checks if the operation is one of the supported values.
func (o Operation) IsValid() bool {
	return o == Retrieve || o == Similar
}

func (o Operation) String() string { return string(o) }
