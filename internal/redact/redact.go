// Package redact scrubs PII and probable secrets from text before it can
// become a memory finding or entry. Best-effort pattern and entropy
// detection, not a cryptographic guarantee.
package redact

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Result reports what Redact did to a string.
type Result struct {
	Redacted      string
	HadPII        bool
	RedactedTypes []string
}

type detector struct {
	name string
	re   *regexp.Regexp
}

// Ordered: specific token formats before generic shapes, so a GitHub PAT
// is labeled github-pat rather than probable-secret.
var detectors = []detector{
	{"github-pat", regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`)},
	{"github-token", regexp.MustCompile(`gh[ousr]_[A-Za-z0-9]{36,}`)},
	{"aws-access-key", regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{"api-key", regexp.MustCompile(`\b(?:sk|rk|pk)-[A-Za-z0-9_\-]{20,}`)},
	{"slack-token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`)},
	{"private-key", regexp.MustCompile(`-----BEGIN (?:[A-Z]+ )?PRIVATE KEY-----`)},
	{"connection-string", regexp.MustCompile(`\b[a-z][a-z0-9+.\-]*://[^/\s:@]+:[^@\s]+@[^\s]+`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
}

const (
	entropyMinLen  = 20
	entropyMinBits = 4.0
)

// Redact replaces detected secrets and PII with literal markers. Pure
// function: same input, same output, no state.
func Redact(text string) Result {
	return redact(text, true)
}

// RedactPatterns runs only the pattern detectors, skipping the entropy
// scan. Used when the entropy feature flag is off.
func RedactPatterns(text string) Result {
	return redact(text, false)
}

func redact(text string, entropy bool) Result {
	out := text
	var types []string

	for _, d := range detectors {
		if !d.re.MatchString(out) {
			continue
		}
		out = d.re.ReplaceAllString(out, marker(d.name))
		types = append(types, d.name)
	}

	if entropy {
		scrubbed, hit := scrubHighEntropy(out)
		if hit {
			out = scrubbed
			types = append(types, "probable-secret")
		}
	}

	return Result{Redacted: out, HadPII: len(types) > 0, RedactedTypes: types}
}

func marker(name string) string {
	return fmt.Sprintf("[REDACTED:%s]", name)
}

// scrubHighEntropy replaces long, high-entropy, non-path tokens. Tokens
// are whitespace-delimited with surrounding punctuation stripped.
func scrubHighEntropy(text string) (string, bool) {
	fields := strings.Fields(text)
	hit := false
	for _, f := range fields {
		token := strings.Trim(f, `"'(){}[]<>,;:`)
		if len(token) <= entropyMinLen {
			continue
		}
		if pathShaped(token) || strings.Contains(token, "[REDACTED:") {
			continue
		}
		if shannonEntropy(token) > entropyMinBits {
			text = strings.Replace(text, token, marker("probable-secret"), 1)
			hit = true
		}
	}
	return text, hit
}

// pathShaped reports whether a token looks like a file path or URL rather
// than an opaque secret.
func pathShaped(token string) bool {
	if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
		return true
	}
	if strings.ContainsAny(token, "/\\") {
		return true
	}
	// Dotted identifiers (package.paths, host.names) are not secrets.
	return strings.Count(token, ".") >= 2
}

// shannonEntropy returns bits per symbol over the token's bytes.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	n := float64(len(s))
	e := 0.0
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		e -= p * math.Log2(p)
	}
	return e
}
