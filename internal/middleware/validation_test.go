package middleware

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type registrationPayload struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
}

type productPayload struct {
	Name string `json:"name" validate:"required"`
	Unit string `json:"unit" validate:"required,unit"`
}

func TestProperty_PhoneValidatorAcceptsDigitStrings(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("digit strings of 8 to 15 characters validate", prop.ForAll(
		func(digits []int8, plus bool) bool {
			var b strings.Builder
			if plus {
				b.WriteByte('+')
			}
			for _, d := range digits {
				b.WriteByte(byte('0' + d%10))
			}
			payload := registrationPayload{
				Email:       "user@example.com",
				Password:    "password123",
				PhoneNumber: b.String(),
			}
			return ValidateRequest(payload) == nil
		},
		gen.SliceOfN(10, gen.Int8Range(0, 9)),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPhoneValidatorRejectsMalformedNumbers(t *testing.T) {
	for _, phone := range []string{"1234567", "123456789012345678", "abc12345", "+216 12 345 678", "++21612345678"} {
		payload := registrationPayload{
			Email:       "user@example.com",
			Password:    "password123",
			PhoneNumber: phone,
		}
		if err := ValidateRequest(payload); err == nil {
			t.Errorf("phone %q should not validate", phone)
		}
	}
}

func TestUnitValidator(t *testing.T) {
	for _, unit := range []string{"kg", "ton"} {
		if err := ValidateRequest(productPayload{Name: "Tomatoes", Unit: unit}); err != nil {
			t.Errorf("unit %q should validate: %v", unit, err)
		}
	}
	for _, unit := range []string{"", "lb", "KG", "tons"} {
		if err := ValidateRequest(productPayload{Name: "Tomatoes", Unit: unit}); err == nil {
			t.Errorf("unit %q should not validate", unit)
		}
	}
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid payload",
			body: `{"email":"user@example.com","password":"password123"}`,
		},
		{
			name:    "malformed json",
			body:    `{"email":`,
			wantErr: true,
		},
		{
			name:    "missing required field",
			body:    `{"email":"user@example.com"}`,
			wantErr: true,
		},
		{
			name:    "invalid email",
			body:    `{"email":"not-an-email","password":"password123"}`,
			wantErr: true,
		},
		{
			name:    "short password",
			body:    `{"email":"user@example.com","password":"short"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", strings.NewReader(tt.body))
			var payload registrationPayload
			err := DecodeAndValidate(req, &payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeAndValidate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatValidationErrorsNamesEachField(t *testing.T) {
	err := ValidateRequest(registrationPayload{
		Email:       "not-an-email",
		Password:    "short",
		PhoneNumber: "abc",
	})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	formatted := FormatValidationErrors(err)
	if len(formatted) != 3 {
		t.Fatalf("got %d errors, want 3: %+v", len(formatted), formatted)
	}

	byField := make(map[string]string, len(formatted))
	for _, fe := range formatted {
		if fe.Message == "" {
			t.Errorf("field %s has no message", fe.Field)
		}
		byField[fe.Field] = fe.Message
	}
	for _, field := range []string{"Email", "Password", "PhoneNumber"} {
		if _, ok := byField[field]; !ok {
			t.Errorf("missing error for field %s", field)
		}
	}
}

func TestFormatValidationErrorsIgnoresOtherErrors(t *testing.T) {
	if got := FormatValidationErrors(errors.New("boom")); got != nil {
		t.Errorf("expected nil for non-validator errors, got %+v", got)
	}
}
