package strategy

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"stratgen/internal/logger"
)

// Issue is one schema failure, addressed by JSON path.
type Issue struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Tag     string    `json:"tag"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	path []string // Go field names below the root
}

func (i Issue) String() string { return i.Message }

// ValidationResult is produced by one pass plus at most one repair pass.
type ValidationResult struct {
	Success     bool                `json:"success"`
	Data        *InvestmentStrategy `json:"data,omitempty"`
	Errors      []Issue             `json:"errors,omitempty"`
	Fixed       bool                `json:"fixed"`
	FixedFields []string            `json:"fixedFields,omitempty"`
}

// Messages flattens Errors for metadata.
func (r ValidationResult) Messages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Validator checks drafts against the struct-tag schema and repairs them once.
type Validator struct {
	v       *validator.Validate
	repairs map[ErrorKind]RepairFunc
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, repairs: DefaultRepairs()}
}

// Validate runs one validation pass; on failure it applies one repair pass and re-validates once.
// The input draft is never modified.
func (val *Validator) Validate(d Draft) ValidationResult {
	issues := val.check(d)
	if len(issues) == 0 {
		s, ok := d.Strategy()
		if !ok {
			return ValidationResult{Errors: []Issue{{Field: "", Kind: KindMissingSection, Tag: "required", Message: "strategy incomplete"}}}
		}
		return ValidationResult{Success: true, Data: &s}
	}

	repaired, fixed, ok := val.repair(d, issues)
	if !ok {
		logger.Debugf("策略校验失败且不可修复: %s", joinMessages(issues))
		return ValidationResult{Errors: issues}
	}
	remaining := val.check(repaired)
	if len(remaining) > 0 {
		logger.Debugf("策略修复后仍不合法: %s", joinMessages(remaining))
		return ValidationResult{Errors: remaining}
	}
	s, complete := repaired.Strategy()
	if !complete {
		return ValidationResult{Errors: issues}
	}
	logger.Debugf("策略已自动修复字段: %s", strings.Join(fixed, ", "))
	return ValidationResult{Success: true, Data: &s, Errors: issues, Fixed: true, FixedFields: fixed}
}

func (val *Validator) check(d Draft) []Issue {
	err := val.v.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Kind: KindInvalid, Tag: "struct", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		field := trimRoot(fe.Namespace())
		issues = append(issues, Issue{
			Field:   field,
			Kind:    classify(fe),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: describe(field, fe),
			path:    strings.Split(trimRoot(fe.StructNamespace()), "."),
		})
	}
	return issues
}

// repair applies the table to a deep copy; any unrepairable issue aborts the pass.
func (val *Validator) repair(d Draft, issues []Issue) (Draft, []string, bool) {
	out := d.Clone()
	root := reflect.ValueOf(&out).Elem()
	fixed := make([]string, 0, len(issues))
	for _, is := range issues {
		fn, ok := val.repairs[is.Kind]
		if !ok {
			return Draft{}, nil, false
		}
		field, sf, ok := locate(root, is.path)
		if !ok {
			return Draft{}, nil, false
		}
		c := constraintFor(is, sf)
		current, ok := readValue(field)
		if !ok && is.Kind != KindMissingNumber {
			return Draft{}, nil, false
		}
		next, ok := fn(current, c)
		if !ok || !writeValue(field, next) {
			return Draft{}, nil, false
		}
		fixed = append(fixed, is.Field)
	}
	return out, fixed, true
}

func classify(fe validator.FieldError) ErrorKind {
	switch fe.Tag() {
	case "required":
		t := fe.Type()
		for t != nil && t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t == nil {
			return KindInvalid
		}
		switch t.Kind() {
		case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
			return KindMissingNumber
		case reflect.String:
			return KindMissingString
		case reflect.Struct:
			return KindMissingSection
		}
	case "min":
		if fe.Kind() == reflect.String {
			return KindTooShort
		}
		return KindTooSmall
	case "gte", "gt":
		return KindTooSmall
	case "max", "lte", "lt":
		return KindTooBig
	}
	return KindInvalid
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be < %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// locate walks Go field names, dereferencing intermediate struct pointers.
func locate(root reflect.Value, path []string) (reflect.Value, reflect.StructField, bool) {
	cur := root
	var sf reflect.StructField
	for i, name := range path {
		for cur.Kind() == reflect.Ptr {
			if cur.IsNil() {
				return reflect.Value{}, sf, false
			}
			cur = cur.Elem()
		}
		if cur.Kind() != reflect.Struct {
			return reflect.Value{}, sf, false
		}
		f, ok := cur.Type().FieldByName(name)
		if !ok {
			return reflect.Value{}, sf, false
		}
		sf = f
		cur = cur.FieldByIndex(f.Index)
		if i == len(path)-1 {
			return cur, sf, cur.CanSet()
		}
	}
	return reflect.Value{}, sf, false
}

func constraintFor(is Issue, sf reflect.StructField) Constraint {
	c := Constraint{Field: is.Field, Tag: is.Tag, Param: is.Param}
	c.Name = strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
	for _, rule := range strings.Split(sf.Tag.Get("validate"), ",") {
		if p, ok := strings.CutPrefix(rule, "min="); ok {
			if n, err := strconv.Atoi(p); err == nil {
				c.MinLen = n
			}
		}
	}
	return c
}

func readValue(v reflect.Value) (any, bool) {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return nil, false
		}
		return readValue(v.Elem())
	case reflect.Float64:
		return v.Float(), true
	case reflect.String:
		return v.String(), true
	}
	return nil, false
}

func writeValue(v reflect.Value, next any) bool {
	switch val := next.(type) {
	case float64:
		if v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Float64 {
			v.Set(reflect.ValueOf(&val))
			return true
		}
		if v.Kind() == reflect.Float64 {
			v.SetFloat(val)
			return true
		}
	case string:
		if v.Kind() == reflect.String {
			v.SetString(val)
			return true
		}
	}
	return false
}

func joinMessages(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.Message
	}
	return strings.Join(parts, "; ")
}
