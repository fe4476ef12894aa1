// Package protocol implements the wire codec and trace-id generator (SPEC
// §4.1/§6): the JSON envelope shared by requests and responses, and the
// collision-resistant id that correlates a response back to its request.
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventCode round-trips as either a JSON number or a JSON string depending
// on whether its string form is all-digit (SPEC §4.1/§6): the codec never
// guesses intent beyond that rule.
type EventCode string

func (e EventCode) MarshalJSON() ([]byte, error) {
	if isAllDigits(string(e)) && e != "" {
		return []byte(e), nil
	}
	return json.Marshal(string(e))
}

func (e *EventCode) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		*e = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = EventCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*e = EventCode(n.String())
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Envelope is the request/response shape shared over every transport
// (SPEC §3/§6). BizData is carried as an opaque json.RawMessage: the codec
// never inspects it beyond passing it through, per SPEC §4.1 and §9.
type Envelope struct {
	AppSign   string          `json:"appSign"`
	Version   string          `json:"version"`
	TimeStamp string          `json:"timeStamp"`
	Action    Action          `json:"action"`
	TraceID   string          `json:"traceId"`
	BizData   json.RawMessage `json:"bizData,omitempty"`
	EventCode EventCode       `json:"eventCode,omitempty"`
	EventMsg  string          `json:"eventMsg,omitempty"`
}

// IsResponse reports whether the envelope carries response-only fields.
func (e Envelope) IsResponse() bool {
	return e.EventCode != "" || e.EventMsg != ""
}

// ParseError is returned by Decode for malformed frames (SPEC §4.1). Corrupt
// frames never poison the transport: callers log and drop them, letting the
// affected outstanding call surface through the registry's timeout path.
type ParseError struct {
	Kind  string
	Field string
	Cause error
}

const (
	ParseErrorMissingField     = "missing_field"
	ParseErrorBizDataNotObject = "biz_data_not_object"
	ParseErrorUnknownEvent     = "unknown_event"
	ParseErrorMalformedJSON    = "malformed_json"
)

func (p *ParseError) Error() string {
	if p.Field != "" {
		return fmt.Sprintf("protocol: %s: %s", p.Kind, p.Field)
	}
	if p.Cause != nil {
		return fmt.Sprintf("protocol: %s: %v", p.Kind, p.Cause)
	}
	return "protocol: " + p.Kind
}

func (p *ParseError) Unwrap() error { return p.Cause }

// Encode serializes an envelope to UTF-8 JSON (SPEC §4.1). It never inspects
// BizData beyond what encoding/json already does for json.RawMessage (i.e.
// nothing: it is copied through verbatim).
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses bytes into an Envelope, validating only the fields the wire
// contract requires (SPEC §4.1): appSign, version, timeStamp, action,
// traceId. BizData is optional (stream events, for example, may carry no
// business payload); when present it must be a JSON object.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, &ParseError{Kind: ParseErrorMalformedJSON, Cause: err}
	}
	for field, value := range map[string]string{
		"appSign":   e.AppSign,
		"version":   e.Version,
		"timeStamp": e.TimeStamp,
		"traceId":   e.TraceID,
	} {
		if value == "" {
			return Envelope{}, &ParseError{Kind: ParseErrorMissingField, Field: field}
		}
	}
	if e.Action == "" {
		return Envelope{}, &ParseError{Kind: ParseErrorMissingField, Field: "action"}
	}
	if len(e.BizData) > 0 {
		trimmed := firstNonSpace(e.BizData)
		if trimmed != '{' && trimmed != 0 {
			return Envelope{}, &ParseError{Kind: ParseErrorBizDataNotObject, Field: "bizData"}
		}
	}
	return e, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

// EventCodeInt parses an EventCode as an integer, used by response decoders
// that branch on numeric codes like 4003 (SPEC testable property #9).
func EventCodeInt(e EventCode) (int, bool) {
	n, err := strconv.Atoi(string(e))
	if err != nil {
		return 0, false
	}
	return n, true
}
