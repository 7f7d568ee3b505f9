package domain

import "fmt"

// Verb is an OAI-PMH protocol verb.
type Verb string

const (
	VerbGetRecord           Verb = "GetRecord"
	VerbIdentify            Verb = "Identify"
	VerbListIdentifiers     Verb = "ListIdentifiers"
	VerbListMetadataFormats Verb = "ListMetadataFormats"
	VerbListRecords         Verb = "ListRecords"
	VerbListSets            Verb = "ListSets"
)

// AllVerbs lists every verb defined by OAI-PMH 2.0.
var AllVerbs = []Verb{
	VerbGetRecord,
	VerbIdentify,
	VerbListIdentifiers,
	VerbListMetadataFormats,
	VerbListRecords,
	VerbListSets,
}

// IsValid reports whether v is a protocol verb.
func (v Verb) IsValid() bool {
	for _, known := range AllVerbs {
		if v == known {
			return true
		}
	}
	return false
}

// ErrorCode is a protocol-level error code carried in an <error> element.
type ErrorCode string

const (
	ErrorBadArgument             ErrorCode = "badArgument"
	ErrorBadResumptionToken      ErrorCode = "badResumptionToken"
	ErrorBadVerb                 ErrorCode = "badVerb"
	ErrorCannotDisseminateFormat ErrorCode = "cannotDisseminateFormat"
	ErrorIDDoesNotExist          ErrorCode = "idDoesNotExist"
	ErrorNoRecordsMatch          ErrorCode = "noRecordsMatch"
	ErrorNoMetadataFormats       ErrorCode = "noMetadataFormats"
	ErrorNoSetHierarchy          ErrorCode = "noSetHierarchy"
)

// applicableVerbs maps each error code to the verbs that may legitimately return it.
// badVerb is returned when the verb itself is unusable, so it applies to none.
var applicableVerbs = map[ErrorCode][]Verb{
	ErrorBadArgument:             AllVerbs,
	ErrorBadResumptionToken:      {VerbListIdentifiers, VerbListRecords, VerbListSets},
	ErrorBadVerb:                 {},
	ErrorCannotDisseminateFormat: {VerbGetRecord, VerbListIdentifiers, VerbListRecords},
	ErrorIDDoesNotExist:          {VerbGetRecord, VerbListMetadataFormats},
	ErrorNoRecordsMatch:          {VerbListIdentifiers, VerbListRecords},
	ErrorNoMetadataFormats:       {VerbListMetadataFormats},
	ErrorNoSetHierarchy:          {VerbListSets, VerbListIdentifiers, VerbListRecords},
}

// ParseErrorCode validates a raw code against the closed set of protocol errors.
func ParseErrorCode(raw string) (ErrorCode, error) {
	code := ErrorCode(raw)
	if _, ok := applicableVerbs[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownErrorCode, raw)
	}
	return code, nil
}

// AppliesTo reports whether a server may return this code for the given verb.
func (c ErrorCode) AppliesTo(v Verb) bool {
	for _, verb := range applicableVerbs[c] {
		if verb == v {
			return true
		}
	}
	return false
}
