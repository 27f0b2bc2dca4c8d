package forms

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/allura/allura-web/util"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// present fails for values that are empty after trimming
func present(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return errors.New(message)
			}
		case bool:
			if !v {
				return errors.New(message)
			}
		default:
			if validation.IsEmpty(value) {
				return errors.New(message)
			}
		}
		return nil
	})
}

// filled fails only for the empty string. Whitespace counts as content.
func filled(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		if s, _ := value.(string); s == "" {
			return errors.New(message)
		}
		return nil
	})
}

// minLength counts the runes of the value as entered. Empty values pass so
// that present or filled reports them.
func minLength(n int, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if s != "" && len([]rune(s)) < n {
			return errors.New(message)
		}
		return nil
	})
}

func equals(other, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		if s, _ := value.(string); s != other {
			return errors.New(message)
		}
		return nil
	})
}

func oneOf(allowed []string, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if s != "" && !util.ContainsString(allowed, s) {
			return errors.New(message)
		}
		return nil
	})
}

// eachOneOf requires every element of a string slice to be allowed
func eachOneOf(allowed []string, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		list, _ := value.([]string)
		for _, s := range list {
			if !util.ContainsString(allowed, s) {
				return errors.New(message)
			}
		}
		return nil
	})
}

func emailRules(required, invalid string) []validation.Rule {
	return []validation.Rule{
		present(required),
		validation.Match(emailPattern).Error(invalid),
	}
}
