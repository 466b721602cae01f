package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldType 表单字段类型
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldTextarea  FieldType = "textarea"
	FieldDropdown  FieldType = "dropdown"
	FieldFile      FieldType = "file"
	FieldImage     FieldType = "image"
	FieldBoolean   FieldType = "boolean"
	FieldHeader    FieldType = "header"
	FieldSeparator FieldType = "separator"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldTextarea, FieldDropdown,
		FieldFile, FieldImage, FieldBoolean, FieldHeader, FieldSeparator:
		return true
	}
	return false
}

// IsInput reports whether the field type accepts a value. Header and
// separator are layout-only.
func (t FieldType) IsInput() bool {
	switch t {
	case FieldHeader, FieldSeparator:
		return false
	default:
		return true
	}
}

// RedactedValue 敏感字段的占位值
const RedactedValue = "[hidden]"

var (
	ErrLastOption       = errors.New("a dropdown field must keep at least one option")
	ErrFieldNotFound    = errors.New("field not found")
	ErrDuplicateFieldID = errors.New("duplicate field id")
)

// FieldOption 下拉选项
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Field 表单字段描述
//
// ID is assigned when the field is created and never changes afterwards;
// it is the key into submission form_data.
type Field struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	Type        FieldType     `json:"type"`
	Placeholder string        `json:"placeholder,omitempty"`
	Required    bool          `json:"required"`
	Sensitive   bool          `json:"sensitive,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
	HeaderLevel int           `json:"header_level,omitempty"`
	Description string        `json:"description,omitempty"`
}

// OptionSlug derives an option value from its label: lower-cased, spaces
// replaced by underscores.
func OptionSlug(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

// Normalize enforces the per-type shape rules in place: layout fields are
// never required, header levels stay in 1..6, option values follow their
// labels, non-dropdown fields carry no options.
func (f *Field) Normalize() {
	if !f.Type.IsInput() {
		f.Required = false
	}
	if f.Type == FieldHeader {
		if f.HeaderLevel < 1 {
			f.HeaderLevel = 1
		}
		if f.HeaderLevel > 6 {
			f.HeaderLevel = 6
		}
	} else {
		f.HeaderLevel = 0
		f.Description = ""
	}
	if f.Type == FieldDropdown {
		for i := range f.Options {
			f.Options[i].Value = OptionSlug(f.Options[i].Label)
		}
	} else {
		f.Options = nil
	}
}

// Validate 校验单个字段定义
func (f Field) Validate() error {
	if f.ID == "" {
		return errors.New("field id is required")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("unknown field type %q", f.Type)
	}
	if f.Type == FieldDropdown && len(f.Options) == 0 {
		return fmt.Errorf("dropdown field %q must have at least one option", f.ID)
	}
	return nil
}

// AddOption appends the next default option ("Option N") and returns it.
func (f *Field) AddOption() FieldOption {
	n := len(f.Options) + 1
	opt := FieldOption{
		Label: fmt.Sprintf("Option %d", n),
		Value: fmt.Sprintf("option%d", n),
	}
	f.Options = append(f.Options, opt)
	return opt
}

// RemoveOption deletes the option with the given value. Removing the last
// remaining option is rejected.
func (f *Field) RemoveOption(value string) error {
	if len(f.Options) <= 1 {
		return ErrLastOption
	}
	for i, opt := range f.Options {
		if opt.Value == value {
			f.Options = append(f.Options[:i], f.Options[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("option %q not found", value)
}

// CoerceValue checks that a submitted value fits the field type and returns
// the value to store. The switch is exhaustive over FieldType.
func (f Field) CoerceValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case FieldText, FieldTextarea, FieldFile, FieldImage:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects a string value", f.ID)
		}
		return s, nil
	case FieldNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case string:
			// Empty string means the input was cleared.
			if n == "" {
				return nil, nil
			}
			var parsed float64
			if _, err := fmt.Sscanf(n, "%g", &parsed); err != nil {
				return nil, fmt.Errorf("field %q expects a number", f.ID)
			}
			return parsed, nil
		default:
			return nil, fmt.Errorf("field %q expects a number", f.ID)
		}
	case FieldDropdown:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q expects an option value", f.ID)
		}
		if s == "" {
			return nil, nil
		}
		for _, opt := range f.Options {
			if opt.Value == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("field %q has no option %q", f.ID, s)
	case FieldBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q expects a boolean", f.ID)
		}
		return b, nil
	case FieldHeader, FieldSeparator:
		return nil, fmt.Errorf("field %q does not accept a value", f.ID)
	default:
		return nil, fmt.Errorf("unknown field type %q", f.Type)
	}
}

// valueEmpty reports whether a stored form value counts as unanswered.
// A boolean false is an answer; nil, "" and an empty list are not.
func valueEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	default:
		return false
	}
}

// FieldList 模板字段列表（有序，jsonb 列）
type FieldList []Field

func (l FieldList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(FieldList{})
	}
	return json.Marshal(l)
}

func (l *FieldList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan FieldList: %v", value)
	}
	return json.Unmarshal(bytes, l)
}

// Validate 校验整个字段列表
func (l FieldList) Validate() error {
	seen := make(map[string]bool, len(l))
	for _, f := range l {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateFieldID, f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// Find returns the index of the field with the given id, or -1.
func (l FieldList) Find(id string) int {
	for i, f := range l {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Move swaps the field with its immediate neighbor. Moving the first field
// up or the last field down is a no-op.
func (l FieldList) Move(id string, up bool) error {
	i := l.Find(id)
	if i < 0 {
		return ErrFieldNotFound
	}
	j := i + 1
	if up {
		j = i - 1
	}
	if j < 0 || j >= len(l) {
		return nil
	}
	l[i], l[j] = l[j], l[i]
	return nil
}

// MissingRequired returns the labels of required fields that have no
// non-empty value in formData, in field order.
func (l FieldList) MissingRequired(formData map[string]interface{}) []string {
	var missing []string
	for _, f := range l {
		if !f.Required || !f.Type.IsInput() {
			continue
		}
		if valueEmpty(formData[f.ID]) {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

// RenderedField 渲染计划中的一项
type RenderedField struct {
	Field
	Value    interface{} `json:"value"`
	Editable bool        `json:"editable"`
	Visible  bool        `json:"visible"`
	Redacted bool        `json:"redacted,omitempty"`
}

// RenderPlan builds the per-field render plan for a partial form_data map.
// Rendering the same inputs twice yields the same plan. When redactSensitive
// is set, sensitive values are replaced with RedactedValue.
func (l FieldList) RenderPlan(formData map[string]interface{}, editable, redactSensitive bool) []RenderedField {
	plan := make([]RenderedField, 0, len(l))
	for _, f := range l {
		rf := RenderedField{
			Field:    f,
			Editable: editable && f.Type.IsInput(),
			Visible:  true,
		}
		if f.Type.IsInput() {
			if v, ok := formData[f.ID]; ok {
				rf.Value = v
			}
			if f.Sensitive && redactSensitive && !valueEmpty(rf.Value) {
				rf.Value = RedactedValue
				rf.Redacted = true
			}
		}
		plan = append(plan, rf)
	}
	return plan
}

// Redact returns a copy of formData with every sensitive field's value
// replaced by RedactedValue. The original map is not modified.
func (l FieldList) Redact(formData JSONB) JSONB {
	if formData == nil {
		return nil
	}
	out := make(JSONB, len(formData))
	for k, v := range formData {
		out[k] = v
	}
	for _, f := range l {
		if !f.Sensitive {
			continue
		}
		if v, ok := out[f.ID]; ok && !valueEmpty(v) {
			out[f.ID] = RedactedValue
		}
	}
	return out
}

// SensitiveIDs returns the ids of all sensitive fields.
func (l FieldList) SensitiveIDs() []string {
	var ids []string
	for _, f := range l {
		if f.Sensitive {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
