package types

import "fmt"

// ConfigurationError is raised at startup, before any buffer is allocated, when
// the decomposition or the mesh size cannot be used for a run
type ConfigurationError struct {
	Check string
}

func NewConfigurationError(format string, a ...interface{}) error {
	return &ConfigurationError{Check: fmt.Sprintf(format, a...)}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Check
}

// TopologyConsistencyError means the rank <-> coordinate encoding disagrees
// with itself, which is a bug rather than a runtime condition
type TopologyConsistencyError struct {
	Rank, Computed int
	Coord          [3]int
	Detail         string
}

func (e *TopologyConsistencyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("topology consistency error on rank %d: %s", e.Rank, e.Detail)
	}
	return fmt.Sprintf("topology consistency error: rank %d decodes to %v which encodes to %d",
		e.Rank, e.Coord, e.Computed)
}

// TransferCompletionViolation reports a receive region whose delivered volume
// does not match what the facet pairing promised
type TransferCompletionViolation struct {
	Rank               int
	Facet              Facet
	Expected, Received int
}

func (e *TransferCompletionViolation) Error() string {
	return fmt.Sprintf("transfer completion violation on rank %d facet %s: expected %d values, received %d",
		e.Rank, e.Facet, e.Expected, e.Received)
}
