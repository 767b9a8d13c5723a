package probe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/clbanning/mxj/v2"
)

// XMLRootTag wraps every document produced by JSONToXML.
const XMLRootTag = "root"

// xmlArrayTag holds the items of a top-level JSON array.
const xmlArrayTag = "object"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

var (
	ErrInvalidJSON    = errors.New("body is not a valid JSON document")
	ErrInvalidXMLName = errors.New("key is not a valid XML element name")
)

// JSONToXML converts a JSON object into an equivalent XML tree under <root>.
// A top-level array is placed under an <object> element; scalars are rejected.
// Numbers keep their literal form and every key must be a valid XML element name.
func JSONToXML(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil && err != io.EOF {
		return nil, err
	}

	var m map[string]any
	switch doc := v.(type) {
	case map[string]any:
		m = doc
	case []any:
		m = map[string]any{xmlArrayTag: doc}
	default:
		return nil, ErrInvalidJSON
	}

	if err := checkXMLNames(m); err != nil {
		return nil, err
	}

	b, err := mxj.Map(m).XmlIndent("", "  ", XMLRootTag)
	if err != nil {
		return nil, err
	}

	return append([]byte(xmlHeader), b...), nil
}

// checkXMLNames walks v and rejects any object key that cannot be written as an element name.
// This also excludes keys mxj would turn into attributes ("-x") or text nodes ("#text").
func checkXMLNames(v any) error {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if !isXMLName(k) {
				return fmt.Errorf("%w: %q", ErrInvalidXMLName, k)
			}
			if err := checkXMLNames(child); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range val {
			if err := checkXMLNames(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// isXMLName reports whether s is a non-namespaced XML element name.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
