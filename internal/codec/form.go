package codec

import "fmt"

// Question types of a subscription form.
const (
	QuestionText     = "text"
	QuestionNumber   = "number"
	QuestionChoice   = "choice"
	QuestionCheckbox = "checkbox"
)

// Form is the decoded subscription form of an activity. The slices are
// parallel: index i of each describes question i.
type Form struct {
	Types        []string
	Descriptions []string
	Options      [][]string
	Required     []bool
	Private      []bool
}

// FormColumns holds the five packed columns a Form is stored in.
type FormColumns struct {
	Types        string
	Descriptions string
	Options      string
	Required     string
	Privacy      string
}

func (c FormColumns) empty() bool {
	return c.Types == "" && c.Descriptions == "" && c.Options == "" && c.Required == "" && c.Privacy == ""
}

// EmptyForm returns a form without questions whose slices are non-nil.
func EmptyForm() Form {
	return Form{
		Types:        []string{},
		Descriptions: []string{},
		Options:      [][]string{},
		Required:     []bool{},
		Private:      []bool{},
	}
}

// Len returns the number of questions.
func (f Form) Len() int {
	return len(f.Types)
}

// Aligned reports whether every parallel slice has one entry per question.
func (f Form) Aligned() bool {
	n := len(f.Types)
	return len(f.Descriptions) == n && len(f.Options) == n && len(f.Required) == n && len(f.Private) == n
}

// IsChoice reports whether question i is answered by picking options.
func (f Form) IsChoice(i int) bool {
	return f.Types[i] == QuestionChoice || f.Types[i] == QuestionCheckbox
}

func EncodeForm(f Form) (FormColumns, error) {
	if !f.Aligned() {
		return FormColumns{}, fmt.Errorf("%w: form columns are not aligned (%d types, %d descriptions, %d option sets, %d required, %d private)",
			ErrEncoding, len(f.Types), len(f.Descriptions), len(f.Options), len(f.Required), len(f.Private))
	}
	for i, t := range f.Types {
		if t == "" {
			return FormColumns{}, fmt.Errorf("%w: question %d has no type", ErrEncoding, i)
		}
	}

	types, err := EncodeStringList(f.Types)
	if err != nil {
		return FormColumns{}, fmt.Errorf("types: %w", err)
	}
	descriptions, err := EncodeStringListN(f.Descriptions)
	if err != nil {
		return FormColumns{}, fmt.Errorf("descriptions: %w", err)
	}
	options, err := EncodeOptionSets(f.Options)
	if err != nil {
		return FormColumns{}, fmt.Errorf("options: %w", err)
	}

	return FormColumns{
		Types:        types,
		Descriptions: descriptions,
		Options:      options,
		Required:     EncodeBoolList(f.Required),
		Privacy:      EncodeBoolList(f.Private),
	}, nil
}

// DecodeForm unpacks the five columns. All-empty columns decode to a form
// without questions; any other mismatch in element counts is an error.
func DecodeForm(c FormColumns) (Form, error) {
	if c.empty() {
		return EmptyForm(), nil
	}
	if c.Types == "" {
		return Form{}, fmt.Errorf("%w: form columns are set but question types are empty", ErrDecoding)
	}

	types := DecodeStringList(c.Types)
	n := len(types)

	descriptions, err := DecodeStringListN(c.Descriptions, n)
	if err != nil {
		return Form{}, fmt.Errorf("descriptions: %w", err)
	}
	options, err := DecodeOptionSets(c.Options, n)
	if err != nil {
		return Form{}, fmt.Errorf("options: %w", err)
	}
	required, err := decodeBoolsN(c.Required, n)
	if err != nil {
		return Form{}, fmt.Errorf("required: %w", err)
	}
	private, err := decodeBoolsN(c.Privacy, n)
	if err != nil {
		return Form{}, fmt.Errorf("privacy: %w", err)
	}

	return Form{
		Types:        types,
		Descriptions: descriptions,
		Options:      options,
		Required:     required,
		Private:      private,
	}, nil
}

func decodeBoolsN(s string, n int) ([]bool, error) {
	flags, err := DecodeBoolList(s)
	if err != nil {
		return nil, err
	}
	if len(flags) != n {
		return nil, fmt.Errorf("%w: expected %d flags, found %d", ErrDecoding, n, len(flags))
	}
	return flags, nil
}
