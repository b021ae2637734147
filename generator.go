// generator.go: Random password generation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/agilira/go-errors"
)

// Character classes used by the generator.
const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	symbolChars  = "!#$%&()*+,-./:;<=>?@[]^_{|}~"
	ambiguousSet = "0O1lI|"
)

// MaxPasswordLength bounds GeneratorOptions.Length.
const MaxPasswordLength = 1024

// GeneratorOptions selects the length and character classes of generated
// passwords. Every enabled class appears at least once.
type GeneratorOptions struct {
	Length           int  `json:"length" yaml:"length"`
	Lowercase        bool `json:"lowercase" yaml:"lowercase"`
	Uppercase        bool `json:"uppercase" yaml:"uppercase"`
	Digits           bool `json:"digits" yaml:"digits"`
	Symbols          bool `json:"symbols" yaml:"symbols"`
	ExcludeAmbiguous bool `json:"exclude_ambiguous" yaml:"exclude_ambiguous"`
}

// DefaultGeneratorOptions returns 20 characters drawn from all classes.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Length:    20,
		Lowercase: true,
		Uppercase: true,
		Digits:    true,
		Symbols:   true,
	}
}

// classes returns the enabled alphabets, ambiguity filter applied.
func (o GeneratorOptions) classes() []string {
	var out []string
	add := func(enabled bool, chars string) {
		if !enabled {
			return
		}
		if o.ExcludeAmbiguous {
			chars = strings.Map(func(r rune) rune {
				if strings.ContainsRune(ambiguousSet, r) {
					return -1
				}
				return r
			}, chars)
		}
		out = append(out, chars)
	}
	add(o.Lowercase, lowerChars)
	add(o.Uppercase, upperChars)
	add(o.Digits, digitChars)
	add(o.Symbols, symbolChars)
	return out
}

// Validate reports whether the options can produce a password.
func (o GeneratorOptions) Validate() error {
	classes := o.classes()
	if len(classes) == 0 {
		return errors.New(ErrCodeInvalidGenerator, "at least one character class must be enabled")
	}
	if o.Length < len(classes) {
		return errors.New(ErrCodeInvalidGenerator, "length is shorter than the number of enabled classes").
			WithContext("length", o.Length).
			WithContext("classes", len(classes))
	}
	if o.Length > MaxPasswordLength {
		return errors.New(ErrCodeInvalidGenerator, "length exceeds maximum").
			WithContext("length", o.Length).
			WithContext("max", MaxPasswordLength)
	}
	return nil
}

// GeneratePassword returns a random password built from crypto/rand.
func GeneratePassword(opts GeneratorOptions) (Secret, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	classes := opts.classes()
	alphabet := strings.Join(classes, "")
	out := make([]byte, opts.Length)

	// One guaranteed character per class, the rest from the union.
	for i, class := range classes {
		c, err := pick(class)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	for i := len(classes); i < opts.Length; i++ {
		c, err := pick(alphabet)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}

	// Fisher-Yates so the guaranteed characters are not always first.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return Secret(out), nil
}

func pick(chars string) (byte, error) {
	i, err := randIndex(len(chars))
	if err != nil {
		return 0, err
	}
	return chars[i], nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, errors.Wrap(err, ErrCodeInvalidGenerator, "random source failed")
	}
	return int(v.Int64()), nil
}
