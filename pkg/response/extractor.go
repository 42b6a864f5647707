package response

import (
	"encoding/xml"
	"io"
	"strings"
)

// Failure is the server-reported authentication failure: the code
// attribute plus the human-readable message text of the failure element.
type Failure struct {
	Code    string
	Message string
}

// Extraction is the result of scanning a single CAS service response body.
// Attribute values are either a string (single occurrence) or a []string
// (repeated occurrences, in document order).
type Extraction struct {
	Failure    *Failure
	Principal  string
	PGTField   string
	Attributes map[string]any
}

// Extract pulls the known fields out of a CAS XML response body. Elements
// are matched by local name only, so any namespace prefix is accepted.
// Attribute extraction is best effort: a malformed body yields an empty
// attribute map, never an error.
func Extract(body string) Extraction {
	extraction := Extraction{
		Principal:  strings.TrimSpace(TextForElement(body, "user")),
		PGTField:   strings.TrimSpace(TextForElement(body, "proxyGrantingTicket")),
		Attributes: extractAttributes(body),
	}

	code, message, found := elementWithCode(body, "authenticationFailure")
	if found && strings.TrimSpace(message) != "" {
		extraction.Failure = &Failure{
			Code:    code,
			Message: strings.TrimSpace(message),
		}
	}

	return extraction
}

// TextForElement returns the character data of the first element in body
// whose local name matches local, regardless of namespace. It returns the
// empty string if no such element exists or the body cannot be parsed up
// to that element.
func TextForElement(body string, local string) string {
	_, text, _ := elementWithCode(body, local)
	return text
}

func elementWithCode(body string, local string) (code string, text string, found bool) {
	decoder := xml.NewDecoder(strings.NewReader(body))

	for {
		token, err := decoder.Token()
		if err != nil {
			return "", "", false
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != local {
			continue
		}

		for _, attr := range start.Attr {
			if attr.Name.Local == "code" {
				code = attr.Value
			}
		}

		text, err = collectText(decoder)
		if err != nil {
			return "", "", false
		}
		return code, text, true
	}
}

// collectText consumes tokens until the end of the element the decoder is
// currently inside, concatenating all character data, including data
// nested inside child elements.
func collectText(decoder *xml.Decoder) (string, error) {
	var builder strings.Builder
	depth := 0

	for {
		token, err := decoder.Token()
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return builder.String(), nil
			}
			depth--
		case xml.CharData:
			builder.Write(t)
		}
	}
}

// extractAttributes locates every "attributes" container in the body and
// turns each direct child element into one attribute keyed by its local
// name. A second occurrence of the same child name upgrades the stored
// value in place from a scalar to an ordered list; later occurrences
// append. Callers relying on scalar access for single-valued attributes
// depend on this exact rule.
func extractAttributes(body string) map[string]any {
	decoder := xml.NewDecoder(strings.NewReader(body))
	attributes := map[string]any{}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return attributes
		}
		if err != nil {
			return map[string]any{}
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "attributes" {
			continue
		}

		if err := consumeAttributeContainer(decoder, attributes); err != nil {
			return map[string]any{}
		}
	}
}

func consumeAttributeContainer(decoder *xml.Decoder, attributes map[string]any) error {
	for {
		token, err := decoder.Token()
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			value, err := collectText(decoder)
			if err != nil {
				return err
			}
			accumulateAttribute(attributes, t.Name.Local, value)
		case xml.EndElement:
			return nil
		}
	}
}

func accumulateAttribute(attributes map[string]any, name string, value string) {
	existing, ok := attributes[name]
	if !ok {
		attributes[name] = value
		return
	}

	switch typed := existing.(type) {
	case string:
		attributes[name] = []string{typed, value}
	case []string:
		attributes[name] = append(typed, value)
	}
}
