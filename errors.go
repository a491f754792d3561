package rpcschema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes reported by compiled validators.
const (
	CodeInvalidType    = "invalid_type"
	CodeRequired       = "required"
	CodeUnknownKey     = "unknown_key"
	CodeTooSmall       = "too_small"
	CodeTooBig         = "too_big"
	CodeTooShort       = "too_short"
	CodeTooLong        = "too_long"
	CodePattern        = "pattern"
	CodeInvalidEnum    = "invalid_enum"
	CodeInvalidFormat  = "invalid_format"
	CodeNoMatch        = "no_match"
	CodeUnionAmbiguous = "union_ambiguous"
	CodeUnresolvedRef  = "unresolved_ref"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string `json:"path"` // JSON Pointer (for example: /items/2/size).
	Code    string `json:"code"` // One of the codes listed above.
	Message string `json:"message"`
	// SchemaPath points at the schema keyword that failed, e.g. #/properties/size/type.
	SchemaPath string `json:"schemaPath,omitempty"`
	// Params carries structured parameters (e.g., {"expected":"string"}).
	Params map[string]any `json:"params,omitempty"`
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Registration errors. They are programming errors: a service must not start
// serving with a registry that failed to build.
var (
	ErrAlreadyRegistered = errors.New("rpcschema: api already registered")
	ErrInvalidVerb       = errors.New("rpcschema: unexpected http method")
	ErrDuplicateID       = errors.New("rpcschema: duplicate schema id")
	ErrRootBuffer        = errors.New("rpcschema: buffer at fragment root")
	ErrInvalidSchema     = errors.New("rpcschema: invalid schema")
)

// RegistrationError reports which API group (and schema id, when known)
// failed to register.
type RegistrationError struct {
	API string
	ID  string
	Err error
}

func (e *RegistrationError) Error() string {
	if e == nil {
		return "registration error"
	}
	if e.ID == "" {
		return fmt.Sprintf("register %s: %v", e.API, e.Err)
	}
	return fmt.Sprintf("register %s: %s: %v", e.API, e.ID, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ContractKind tells whether a contract violation concerns params or reply.
type ContractKind string

const (
	KindParams ContractKind = "params"
	KindReply  ContractKind = "reply"
)

// ContractError is returned by ValidateParams/ValidateReply when a candidate
// does not conform to the method contract. It is a static violation, never
// something to retry.
type ContractError struct {
	MethodID string       // e.g. /object_api/methods/read_object_md
	Label    string       // caller supplied context, e.g. "CLIENT" or "SERVER"
	Kind     ContractKind // params or reply
	Issues   Issues
}

func (e *ContractError) Error() string {
	if e == nil {
		return "contract error"
	}
	head := "INVALID PARAMS SCHEMA"
	if e.Kind == KindReply {
		head = "INVALID REPLY SCHEMA"
	}
	if e.Label != "" {
		head += " " + e.Label
	}
	return fmt.Sprintf("%s %s: %s", head, e.MethodID, e.Issues.Error())
}

// Unwrap exposes the issue list to errors.As / AsIssues.
func (e *ContractError) Unwrap() error { return e.Issues }
