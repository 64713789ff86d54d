// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"regexp"
	"strings"
)

// injectionPatterns are high-risk prompt-injection shapes that block the
// request outright (spec §4.C step 2a) rather than merely redacting it.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all )?(previous|prior|above) instructions`),
	regexp.MustCompile(`(?i)disregard (all )?(previous|prior|above) (instructions|rules)`),
	regexp.MustCompile(`(?i)you are now (in )?(developer|debug|jailbreak|dan) mode`),
	regexp.MustCompile(`(?i)system\s*:\s*override`),
	regexp.MustCompile(`(?i)reveal (your|the) system prompt`),
}

// secretPatterns mask apparent secrets before a prompt reaches the CLI
// (spec §4.C step 2b): PEM blocks, `*_KEY=...` assignments, bearer tokens.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`),
	regexp.MustCompile(`(?i)[A-Z0-9_]*_KEY\s*=\s*\S+`),
	regexp.MustCompile(`(?i)[A-Z0-9_]*_TOKEN\s*=\s*\S+`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
}

// pathPatterns, usernamePattern, privateIPPattern, and ipPattern scrub
// sensitive environment details out of error text before it is audited or
// returned to a caller.
var (
	pathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/Users/[^/\s]+`),
		regexp.MustCompile(`/home/[^/\s]+`),
		regexp.MustCompile(`/etc/[^:\s]+`),
		regexp.MustCompile(`C:\\Users\\[^\\]+`),
		regexp.MustCompile(`C:\\Documents and Settings\\[^\\]+`),
	}

	usernamePattern  = regexp.MustCompile(`user(?:name)?[:\s]+[^\s]+`)
	privateIPPattern = regexp.MustCompile(`\b(?:10\.|172\.(?:1[6-9]|2[0-9]|3[01])\.|192\.168\.)[0-9.]+\b`)
	ipPattern        = regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)
)

// containsInjection reports whether prompt matches a known high-risk
// injection shape.
func containsInjection(prompt string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(prompt) {
			return true
		}
	}
	return false
}

// redactSecrets masks apparent secrets in prompt. The redacted prompt is
// what reaches the CLI; only its hash (computed by the caller) may be
// audited.
func redactSecrets(prompt string) string {
	result := prompt
	for _, p := range secretPatterns {
		result = p.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// sanitizePrompt applies the two-pass sanitization spec §4.C step 2
// describes, unless trustedSource is true. ok is false when the prompt was
// blocked outright.
func sanitizePrompt(prompt string, trustedSource bool) (sanitized string, ok bool) {
	if trustedSource {
		return prompt, true
	}
	if containsInjection(prompt) {
		return "", false
	}
	return redactSecrets(prompt), true
}

// sanitizeError removes sensitive information (paths, usernames, IP
// addresses, stack-trace lines) from subprocess stderr before it is
// recorded or returned.
func sanitizeError(errMsg string) string {
	result := errMsg

	for _, pattern := range pathPatterns {
		result = pattern.ReplaceAllString(result, "[PATH]")
	}

	result = usernamePattern.ReplaceAllString(result, "user: [REDACTED]")
	result = privateIPPattern.ReplaceAllString(result, "[PRIVATE_IP]")
	result = ipPattern.ReplaceAllString(result, "[IP]")

	lines := strings.Split(result, "\n")
	var sanitizedLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "at ") || strings.Contains(trimmed, ".go:") {
			continue
		}
		sanitizedLines = append(sanitizedLines, line)
	}
	result = strings.Join(sanitizedLines, "\n")

	const maxLen = 4096
	result = strings.TrimSpace(result)
	if len(result) > maxLen {
		result = result[:maxLen]
	}
	return result
}
