package models

import (
	"fmt"
	"strings"
)

// UploadOutcome defines the terminal states of one upload call.
type UploadOutcome string

const (
	OutcomeNoOp    UploadOutcome = "noop"
	OutcomeSuccess UploadOutcome = "success"
	OutcomeFailed  UploadOutcome = "failed"
)

var validUploadOutcomes = map[UploadOutcome]struct{}{
	OutcomeNoOp:    {},
	OutcomeSuccess: {},
	OutcomeFailed:  {},
}

func IsValidUploadOutcome(outcome UploadOutcome) bool {
	_, ok := validUploadOutcomes[outcome]
	return ok
}

// ParseUploadOutcome normalizes and validates a stored outcome value.
func ParseUploadOutcome(value string) (UploadOutcome, error) {
	outcome := UploadOutcome(strings.ToLower(strings.TrimSpace(value)))
	if !IsValidUploadOutcome(outcome) {
		return "", fmt.Errorf("invalid upload outcome %q", value)
	}
	return outcome, nil
}

// PartFieldPrefix is prepended to the architecture to name a multipart field.
const PartFieldPrefix = "symbol_file_"

// PartField returns the multipart field name carrying one architecture's symbols.
func PartField(arch string) string {
	return PartFieldPrefix + arch
}
