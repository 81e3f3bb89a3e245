package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	unlocodeRe = regexp.MustCompile(`^[A-Z]{2}[A-Z2-9]{3}$`)
	hsCodeRe   = regexp.MustCompile(`^[0-9]{2,10}$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("query"); name != "" {
				return name
			}
			return strings.ToLower(f.Name)
		})
		_ = v.RegisterValidation("unlocode", func(fl validator.FieldLevel) bool {
			return unlocodeRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("hscode", func(fl validator.FieldLevel) bool {
			return hsCodeRe.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// paramError is a client input problem rendered as a 422.
type paramError struct {
	code    string
	message string
	hint    string
}

func (e *paramError) Error() string { return e.message }

const unlocodeHint = "Example: USLAX, SGSIN"

// check validates a bound parameter struct.
func check(params any) error {
	err := getValidator().Struct(params)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return &paramError{code: codeInvalidRequest, message: err.Error()}
	}
	fe := ves[0]
	name := fe.Field()
	switch fe.Tag() {
	case "unlocode":
		return &paramError{code: codeInvalidUnlocode, message: fmt.Sprintf("invalid UN/LOCODE %q", fe.Value()), hint: unlocodeHint}
	case "hscode":
		return &paramError{code: codeInvalidRequest, message: fmt.Sprintf("invalid HS code %q", fe.Value()), hint: "HS codes are 2 to 10 digits, e.g. 8517"}
	case "required":
		return &paramError{code: codeInvalidRequest, message: name + " is required"}
	case "min", "gte":
		return &paramError{code: codeInvalidRequest, message: fmt.Sprintf("%s must be >= %s", name, fe.Param())}
	case "max", "lte":
		return &paramError{code: codeInvalidRequest, message: fmt.Sprintf("%s must be <= %s", name, fe.Param())}
	case "oneof":
		return &paramError{code: codeInvalidRequest, message: fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))}
	case "alpha":
		return &paramError{code: codeInvalidRequest, message: name + " must contain letters only"}
	}
	return &paramError{code: codeInvalidRequest, message: fmt.Sprintf("%s failed %s validation", name, fe.Tag())}
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &paramError{code: codeInvalidRequest, message: name + " must be an integer"}
	}
	return n, nil
}

// parseWindow accepts "14d" or "14".
func parseWindow(s string, def int) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil {
		return 0, &paramError{code: codeInvalidRequest, message: "window must look like 14d", hint: "Use a day count between 7 and 60, e.g. window=14d"}
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeParamError renders err when it is a paramError and reports whether it
// did.
func writeParamError(w http.ResponseWriter, r *http.Request, err error) bool {
	var pe *paramError
	if !errors.As(err, &pe) {
		return false
	}
	writeError(w, r, http.StatusUnprocessableEntity, pe.code, pe.message, pe.hint)
	return true
}
