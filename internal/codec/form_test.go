package codec

import (
	"errors"
	"reflect"
	"testing"
)

func TestFormRoundTrip(t *testing.T) {
	form := Form{
		Types:        []string{QuestionText, QuestionNumber, QuestionChoice, QuestionCheckbox},
		Descriptions: []string{"Dietary wishes", "Age", "T-shirt size", "Workshops"},
		Options:      [][]string{{}, {}, {"S", "M", "L"}, {"Go", "SQL"}},
		Required:     []bool{false, true, true, false},
		Private:      []bool{true, false, false, false},
	}

	cols, err := EncodeForm(form)
	if err != nil {
		t.Fatalf("EncodeForm: %v", err)
	}
	decoded, err := DecodeForm(cols)
	if err != nil {
		t.Fatalf("DecodeForm: %v", err)
	}
	if decoded.Len() != 4 {
		t.Fatalf("expected 4 questions, got %d", decoded.Len())
	}
	if !reflect.DeepEqual(decoded, form) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", decoded, form)
	}
}

func TestFormAllowsTrailingHash(t *testing.T) {
	form := Form{
		Types:        []string{QuestionChoice, QuestionText},
		Descriptions: []string{"Do you use C#", "Why C#"},
		Options:      [][]string{{"C#", "F#"}, {}},
		Required:     []bool{true, false},
		Private:      []bool{false, false},
	}
	cols, err := EncodeForm(form)
	if err != nil {
		t.Fatalf("EncodeForm: %v", err)
	}
	decoded, err := DecodeForm(cols)
	if err != nil {
		t.Fatalf("DecodeForm: %v", err)
	}
	if !reflect.DeepEqual(decoded, form) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", decoded, form)
	}
}

func TestFormSingleQuestionWithEmptyDescription(t *testing.T) {
	form := Form{
		Types:        []string{QuestionText},
		Descriptions: []string{""},
		Options:      [][]string{{}},
		Required:     []bool{false},
		Private:      []bool{false},
	}
	cols, err := EncodeForm(form)
	if err != nil {
		t.Fatalf("EncodeForm: %v", err)
	}
	decoded, err := DecodeForm(cols)
	if err != nil {
		t.Fatalf("DecodeForm: %v", err)
	}
	if !reflect.DeepEqual(decoded, form) {
		t.Fatalf("round trip mismatch: got %#v", decoded)
	}
}

func TestEmptyForm(t *testing.T) {
	cols, err := EncodeForm(EmptyForm())
	if err != nil {
		t.Fatalf("EncodeForm: %v", err)
	}
	if cols != (FormColumns{}) {
		t.Fatalf("expected empty columns, got %#v", cols)
	}
	decoded, err := DecodeForm(cols)
	if err != nil {
		t.Fatalf("DecodeForm: %v", err)
	}
	if decoded.Len() != 0 || !decoded.Aligned() {
		t.Fatalf("expected empty aligned form, got %#v", decoded)
	}
}

func TestEncodeFormRejectsMisalignedColumns(t *testing.T) {
	form := Form{
		Types:        []string{QuestionText, QuestionText},
		Descriptions: []string{"one"},
		Options:      [][]string{{}, {}},
		Required:     []bool{false, false},
		Private:      []bool{false, false},
	}
	if _, err := EncodeForm(form); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestDecodeFormRejectsMisalignedColumns(t *testing.T) {
	cols := FormColumns{
		Types:        "text#,#text",
		Descriptions: "a#,#b",
		Options:      "#,#",
		Required:     "true",
		Privacy:      "false#,#false",
	}
	if _, err := DecodeForm(cols); !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected ErrDecoding, got %v", err)
	}

	if _, err := DecodeForm(FormColumns{Descriptions: "orphan"}); !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected ErrDecoding without types, got %v", err)
	}
}
