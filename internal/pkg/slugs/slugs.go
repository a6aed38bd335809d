// Package slugs builds URL slugs for public pages.
package slugs

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
)

// Lowercase base36 keeps generated suffixes valid in slugs.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// MaxLength is the longest slug a page may use.
const MaxLength = 50

var accents = strings.NewReplacer(
	"á", "a", "à", "a", "ä", "a", "â", "a", "å", "a",
	"é", "e", "è", "e", "ë", "e", "ê", "e",
	"í", "i", "ì", "i", "ï", "i", "î", "i",
	"ó", "o", "ò", "o", "ö", "o", "ô", "o",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
	"ç", "c", "ñ", "n", "ß", "ss", "&", "-en-",
)

// RandomSuffix creates a cryptographically secure random base36 string.
func RandomSuffix(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid suffix length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 252 is the largest multiple of 36 below 256.
	const maxRandomByte = 252

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			out[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}

// Slugify turns a display name into slug form: lowercase ASCII letters,
// digits and single dashes.
func Slugify(s string) string {
	s = accents.Replace(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Suggest returns up to n free alternatives for base. Numbered variants come
// first, random suffixes fill up when those are taken.
func Suggest(base string, n int, taken func(string) (bool, error)) ([]string, error) {
	base = Slugify(base)
	if base == "" || n <= 0 {
		return []string{}, nil
	}

	out := make([]string, 0, n)
	try := func(candidate string) error {
		ok, err := taken(candidate)
		if err != nil {
			return err
		}
		if !ok {
			out = append(out, candidate)
		}
		return nil
	}

	for i := 2; i <= 9 && len(out) < n; i++ {
		if err := try(withSuffix(base, strconv.Itoa(i))); err != nil {
			return nil, err
		}
	}
	for attempts := 0; attempts < n*4 && len(out) < n; attempts++ {
		suffix, err := RandomSuffix(4)
		if err != nil {
			return nil, err
		}
		if err := try(withSuffix(base, suffix)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func withSuffix(base, suffix string) string {
	max := MaxLength - len(suffix) - 1
	if len(base) > max {
		base = strings.TrimRight(base[:max], "-")
	}
	return base + "-" + suffix
}
