package customreport

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// ErrInvalidConfig marks a configuration that cannot be compiled.
var ErrInvalidConfig = errors.New("customreport: invalid config")

// FieldType drives operator legality and formatting.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldCurrency FieldType = "currency"
	FieldDate     FieldType = "date"
	FieldBoolean  FieldType = "boolean"
)

// Numeric reports whether values of this type are decimals.
func (t FieldType) Numeric() bool {
	return t == FieldNumber || t == FieldCurrency
}

// Align is a display hint for a column.
type Align string

const (
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

// FieldSpec selects a column of the source.
type FieldSpec struct {
	Key   string    `json:"key" validate:"required,max=64"`
	Label string    `json:"label" validate:"max=120"`
	Type  FieldType `json:"type" validate:"required,oneof=text number currency date boolean"`
	Align Align     `json:"align,omitempty" validate:"omitempty,oneof=left right center"`
}

// Heading returns the label, falling back to the key.
func (f FieldSpec) Heading() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// FilterSpec is a user-authored predicate over one field.
type FilterSpec struct {
	Field    string `json:"field" validate:"required,max=64"`
	Operator string `json:"operator" validate:"required,max=32"`
	Value    string `json:"value" validate:"max=256"`
}

// Config is a saved custom report definition.
type Config struct {
	ID      uuid.UUID    `json:"id"`
	Name    string       `json:"name" validate:"required,max=120"`
	Source  string       `json:"source" validate:"required"`
	Fields  []FieldSpec  `json:"fields" validate:"required,min=1,max=50,dive"`
	Filters []FilterSpec `json:"filters" validate:"max=20,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural rules of the config.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(cfg.Fields))
	for _, field := range cfg.Fields {
		if _, dup := seen[field.Key]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidConfig, field.Key)
		}
		seen[field.Key] = struct{}{}
	}
	return nil
}

// Digest fingerprints the parts of a config that affect its output. Names and
// ids do not participate.
func Digest(cfg Config) string {
	payload, _ := json.Marshal(struct {
		Source  string       `json:"source"`
		Fields  []FieldSpec  `json:"fields"`
		Filters []FilterSpec `json:"filters"`
	}{cfg.Source, cfg.Fields, cfg.Filters})
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}
