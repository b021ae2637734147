// generator_test.go: Tests for password generation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"strings"
	"testing"
)

func TestGeneratePassword_Defaults(t *testing.T) {
	opts := DefaultGeneratorOptions()
	for i := 0; i < 50; i++ {
		pw, err := GeneratePassword(opts)
		if err != nil {
			t.Fatalf("GeneratePassword failed: %v", err)
		}
		s := string(pw.Bytes())
		if len(s) != opts.Length {
			t.Fatalf("length = %d, want %d", len(s), opts.Length)
		}
		for _, class := range []string{lowerChars, upperChars, digitChars, symbolChars} {
			if !strings.ContainsAny(s, class) {
				t.Fatalf("%q misses a character from %q", s, class)
			}
		}
	}
}

func TestGeneratePassword_ExcludeAmbiguous(t *testing.T) {
	opts := GeneratorOptions{Length: 200, Lowercase: true, Uppercase: true, Digits: true, ExcludeAmbiguous: true}
	pw, err := GeneratePassword(opts)
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if strings.ContainsAny(string(pw.Bytes()), ambiguousSet) {
		t.Errorf("ambiguous characters in %q", pw.Bytes())
	}
	if strings.ContainsAny(string(pw.Bytes()), symbolChars) {
		t.Error("symbols present although disabled")
	}
}

func TestGeneratePassword_Distinct(t *testing.T) {
	a, _ := GeneratePassword(DefaultGeneratorOptions())
	b, _ := GeneratePassword(DefaultGeneratorOptions())
	if string(a.Bytes()) == string(b.Bytes()) {
		t.Error("two generated passwords are identical")
	}
}

func TestGeneratorOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts GeneratorOptions
	}{
		{"no classes", GeneratorOptions{Length: 10}},
		{"shorter than classes", GeneratorOptions{Length: 3, Lowercase: true, Uppercase: true, Digits: true, Symbols: true}},
		{"too long", GeneratorOptions{Length: MaxPasswordLength + 1, Digits: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GeneratePassword(tt.opts)
			if code := errorCode(t, err); code != ErrCodeInvalidGenerator {
				t.Errorf("code = %s, want %s", code, ErrCodeInvalidGenerator)
			}
		})
	}

	if err := (GeneratorOptions{Length: 1, Digits: true}).Validate(); err != nil {
		t.Errorf("single digit should be valid: %v", err)
	}
}
