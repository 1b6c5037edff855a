package reduxmapper

import (
	"errors"
	"fmt"
)

// Code identifies a fatal condition reported to the user with troubleshooting tips.
type Code int

const (
	CodeNoReducers       Code = -1
	CodeNoUsages         Code = -2
	CodeNoMainApp        Code = -3
	CodeInvalidConfig    Code = -4
	CodeMissingParameter Code = -5
	CodeNoProjectRoot    Code = -6
	CodeBadRegexp        Code = -7
)

// ConfigFilename is the side-car configuration file looked up in the project root.
const ConfigFilename = "redux-mapper.json"

var codeNames = map[Code]string{
	CodeNoReducers:       "NO REDUCERS FOUND",
	CodeNoUsages:         "NO REDUCER REFERENCES FOUND",
	CodeNoMainApp:        "NO MAIN APPLICATION CONTAINER FOUND",
	CodeInvalidConfig:    "INVALID CONFIGURATION FILE (" + ConfigFilename + ")",
	CodeMissingParameter: "REQUIRED PARAMETER NOT SPECIFIED",
	CodeNoProjectRoot:    "NOT EXECUTED UNDER NODE PATH",
	CodeBadRegexp:        "BAD REGULAR EXPRESSION",
}

var codeTips = map[Code][]string{
	CodeNoReducers: {
		"Make sure the base path parameter (-b) is set to the subfolder where your application script files begin (from where package.json is found)",
		"If you place all your reducers in a folder tree separate from your UI components, be sure to specify that folder path with the -r parameter",
		"Be sure all reducer definition files export a PRM_REDUCER_NAME constant which specifies the name of the reducer state member (e.g., export const PRM_REDUCER_NAME = 'myReducer'; if you reference the store using state.myReducer)",
	},
	CodeNoUsages: {
		"Make sure you specify the subfolder(s) (from base path) holding UI container script files (a container is a UI script file which handles a route URL) using the -c parameter",
		"Make sure you specify all filenames in a folder containing a reducer that, if imported, mean that your container uses the reducer (e.g., if your reducer actions are defined in actions.js and state is read using fetcher.js, specify actions.js,fetcher.js as the -f parameter)",
	},
	CodeNoMainApp: {
		"Make sure you specify the subpath (from base path) to the main UI file for your single-page application using the -a parameter",
	},
	CodeInvalidConfig: {
		"The configuration file could not be parsed. Please check that it is formatted correctly",
	},
	CodeNoProjectRoot: {
		"The redux mapper must be executed inside a node path (a package.json file must be found in the execution folder or one of its ancestors)",
	},
	CodeBadRegexp: {
		"The regular expression provided as the --ignorePaths parameter is invalid",
	},
}

// Name returns the headline shown for the code.
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Tips returns the generic troubleshooting tips for the code.
func (c Code) Tips() []string {
	return codeTips[c]
}

// Error is a fatal condition carrying a code and troubleshooting tips.
type Error struct {
	Code Code

	// Detail is appended to the headline, such as the missing parameter or file.
	Detail string

	// Tips are shown after the generic tips of Code.
	Tips []string

	// Err is the underlying cause, if any.
	Err error
}

// NewError creates an Error with the given detail.
func NewError(code Code, detail string, tips ...string) *Error {
	return &Error{Code: code, Detail: detail, Tips: tips}
}

func (e *Error) Error() string {
	msg := e.Code.Name()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AllTips returns the generic tips of the code followed by the error's own tips.
func (e *Error) AllTips() []string {
	tips := append([]string(nil), e.Code.Tips()...)
	return append(tips, e.Tips...)
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
