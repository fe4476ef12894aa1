package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Envelope{
		{
			AppSign: "sign", Version: "1.0", TimeStamp: "1700000000000",
			Action: ActionSale, TraceID: "t-1",
			BizData:   json.RawMessage(`{"refOrderId":"O-1"}`),
			EventCode: "4003",
		},
		{
			AppSign: "sign", Version: "1.0", TimeStamp: "1700000000000",
			Action: ActionInit, TraceID: "t-2",
			EventCode: "PROCESSING",
			EventMsg:  "legacy message",
		},
	}
	for _, want := range cases {
		data, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.TraceID != want.TraceID || got.EventCode != want.EventCode || got.Action != want.Action {
			t.Errorf("round trip mismatch: got %+v want %+v", got, want)
		}
	}
}

func TestEventCodeNumericSerialization(t *testing.T) {
	data, err := Encode(Envelope{
		AppSign: "a", Version: "1", TimeStamp: "1", Action: ActionSale, TraceID: "t",
		EventCode: "4003",
	})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["eventCode"]) != "4003" {
		t.Errorf("eventCode should serialize as a bare JSON number, got %s", raw["eventCode"])
	}
}

func TestEventCodeAlphaSerialization(t *testing.T) {
	data, err := Encode(Envelope{
		AppSign: "a", Version: "1", TimeStamp: "1", Action: ActionSale, TraceID: "t",
		EventCode: "WAITING_CARD",
	})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["eventCode"]) != `"WAITING_CARD"` {
		t.Errorf("eventCode should serialize as a JSON string, got %s", raw["eventCode"])
	}
}

func TestDecodeAcceptsNumericOrStringEventCode(t *testing.T) {
	numeric := `{"appSign":"a","version":"1","timeStamp":"1","action":"SALE","traceId":"t","eventCode":4003}`
	env, err := Decode([]byte(numeric))
	if err != nil {
		t.Fatal(err)
	}
	if env.EventCode != "4003" {
		t.Errorf("got %q, want 4003", env.EventCode)
	}
	n, ok := EventCodeInt(env.EventCode)
	if !ok || n != 4003 {
		t.Errorf("EventCodeInt = %d,%v want 4003,true", n, ok)
	}
}

func TestDecodeMissingFields(t *testing.T) {
	cases := []string{
		`{"version":"1","timeStamp":"1","action":"SALE","traceId":"t"}`,
		`{"appSign":"a","timeStamp":"1","action":"SALE","traceId":"t"}`,
		`{"appSign":"a","version":"1","action":"SALE","traceId":"t"}`,
		`{"appSign":"a","version":"1","timeStamp":"1","traceId":"t"}`,
		`{"appSign":"a","version":"1","timeStamp":"1","action":"SALE"}`,
	}
	for _, raw := range cases {
		_, err := Decode([]byte(raw))
		var pe *ParseError
		if err == nil {
			t.Errorf("expected ParseError for %s", raw)
			continue
		}
		if !asParseError(err, &pe) || pe.Kind != ParseErrorMissingField {
			t.Errorf("expected missing-field ParseError for %s, got %v", raw, err)
		}
	}
}

func TestDecodeBizDataNotObject(t *testing.T) {
	raw := `{"appSign":"a","version":"1","timeStamp":"1","action":"SALE","traceId":"t","bizData":"not-an-object"}`
	_, err := Decode([]byte(raw))
	var pe *ParseError
	if !asParseError(err, &pe) || pe.Kind != ParseErrorBizDataNotObject {
		t.Errorf("expected bizData-not-object ParseError, got %v", err)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if !ok {
		return false
	}
	*target = pe
	return true
}

func TestTraceGeneratorUniqueness(t *testing.T) {
	gen := NewTraceGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen.Next()
		if seen[id] {
			t.Fatalf("duplicate trace id generated: %s", id)
		}
		seen[id] = true
	}
}
