package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalid marks a record that fails validation.
var ErrInvalid = errors.New("invalid record")

type problems []error

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Errorf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(p...))
}

func (p *problems) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		p.add("%s is required", field)
	}
}

func (p *problems) maxLen(field string, value *string, n int) {
	if value != nil && utf8.RuneCountInString(*value) > n {
		p.add("%s exceeds %d characters", field, n)
	}
}

func (p *problems) email(field, value string) {
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		p.add("%s is not a valid address", field)
	}
}

func (p *problems) year(field string, value int) {
	if value < 1900 || value > time.Now().Year()+1 {
		p.add("%s out of range (got %d)", field, value)
	}
}

// owner checks the back-reference every dependent record carries.
func (p *problems) owner(idUsuario int64) {
	if idUsuario <= 0 {
		p.add("id_usuario is required")
	}
}

func (p *problems) phone(field, value string) {
	if n := len(value); n < 7 || n > 15 {
		p.add("%s must have 7 to 15 digits", field)
	}
}

// collapse trims s and folds inner runs of whitespace to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// digits drops everything but ASCII digits, so "+57 300-123 4567" is stored
// as "573001234567".
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
