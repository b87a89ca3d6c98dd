// Package configfile reads and writes .zap configuration files.
//
// A .zap file is a JSON document holding one session: its key/value
// settings, the packages it was built against and its endpoint types.
// Documents are checked against an embedded CUE schema before decoding.
package configfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Creator is written into exported documents.
const Creator = "zapgen"

// Error codes for CodecError.
const (
	ErrCodeRead     = "E001"
	ErrCodeSchema   = "E002"
	ErrCodeInvalid  = "E003"
	ErrCodeDecode   = "E004"
	ErrCodeEncode   = "E005"
	ErrCodeWrite    = "E006"
	ErrCodeNoSchema = "E099"
)

// CodecError reports a document that could not be read, validated or
// written.
type CodecError struct {
	Code    string
	Message string
	Pos     token.Pos // position inside the document, if known
}

func (e *CodecError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Document is the on-disk form of a session.
type Document struct {
	FeatureLevel  int            `json:"featureLevel"`
	Creator       string         `json:"creator,omitempty"`
	KeyValuePairs []KeyValue     `json:"keyValuePairs"`
	Packages      []PackageRef   `json:"package"`
	EndpointTypes []EndpointType `json:"endpointTypes"`
}

// KeyValue is one session setting.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PackageRef names a package the session was built against. Path is
// relative to the document's directory when possible.
type PackageRef struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
}

// EndpointType is a named group of cluster states.
type EndpointType struct {
	Name     string         `json:"name"`
	Clusters []ClusterState `json:"clusters"`
}

// ClusterState is the state of one cluster side.
type ClusterState struct {
	Name    string `json:"name,omitempty"`
	Code    int64  `json:"code"`
	Side    string `json:"side"`
	Enabled bool   `json:"enabled"`
}

// Validate checks raw against the configuration schema. filename is used
// in error positions only.
func Validate(raw []byte, filename string) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &CodecError{Code: ErrCodeNoSchema, Message: fmt.Sprintf("compile schema: %v", err)}
	}
	def := schema.LookupPath(cue.ParsePath("#Configuration"))

	data := ctx.CompileBytes(raw, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return cueError(ErrCodeSchema, err)
	}
	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return cueError(ErrCodeInvalid, err)
	}
	return nil
}

// cueError converts the first CUE error into a CodecError.
func cueError(code string, err error) *CodecError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CodecError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	msg := first.Error()
	if path := first.Path(); len(path) > 0 {
		msg = fmt.Sprintf("%s (at %s)", msg, strings.Join(path, "."))
	}
	return &CodecError{Code: code, Message: msg, Pos: first.Position()}
}

// Decode validates and decodes a document.
func Decode(raw []byte, filename string) (*Document, error) {
	if err := Validate(raw, filename); err != nil {
		return nil, err
	}
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, &CodecError{Code: ErrCodeDecode, Message: fmt.Sprintf("decode %s: %v", filename, err)}
	}
	return &doc, nil
}

// Encode renders doc as indented JSON with a trailing newline.
func Encode(doc *Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &CodecError{Code: ErrCodeEncode, Message: err.Error()}
	}
	return append(out, '\n'), nil
}
