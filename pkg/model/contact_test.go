package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewBatchResult_EncodesEmptyCollections(t *testing.T) {
	data, err := json.Marshal(NewBatchResult())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := string(data)
	for _, want := range []string{`"fixed":[]`, `"unchanged":[]`, `"failed":{}`} {
		if !strings.Contains(got, want) {
			t.Errorf("NewBatchResult() JSON = %s, want it to contain %s", got, want)
		}
	}
}

func TestContact_InternalFieldsStayOutOfJSON(t *testing.T) {
	contact := Contact{
		Name:              "Alice",
		PhoneNumbers:      []PhoneNumber{{Label: "mobile", Number: "0788123456"}},
		NormalizedNumbers: []string{"0788123456", "+250788123456"},
		NeedsFix:          true,
	}

	data, err := json.Marshal(contact)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := string(data)
	if strings.Contains(got, "normalized_numbers") {
		t.Errorf("JSON = %s, lookup keys must not be exposed", got)
	}
	if !strings.Contains(got, `"needs_fix":true`) {
		t.Errorf("JSON = %s, want needs_fix", got)
	}
	if strings.Contains(got, `"id"`) {
		t.Errorf("JSON = %s, empty ids should be omitted", got)
	}
}
