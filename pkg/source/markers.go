package source

// MarkerType identifies a literal constant assignment recognized by the tokenizer.
type MarkerType int

const (
	MarkerNone        MarkerType = iota
	MarkerReducerName            // declares a reducer definition file
	MarkerActionFile             // ties an action file to a reducer by name
	MarkerSagaFile               // ties a saga file to a reducer by name
)

// markerNames maps constant names to their marker types.
var markerNames = map[string]MarkerType{
	"PRM_REDUCER_NAME":            MarkerReducerName,
	"PRM_ACTION_FILE_FOR_REDUCER": MarkerActionFile,
	"PRM_SAGA_FILE_FOR_REDUCER":   MarkerSagaFile,
}

// LookupMarker returns the marker type for a constant name, or MarkerNone.
func LookupMarker(ident string) MarkerType {
	return markerNames[ident]
}

// String returns the constant name of the marker.
func (m MarkerType) String() string {
	for name, t := range markerNames {
		if t == m {
			return name
		}
	}
	return "none"
}
