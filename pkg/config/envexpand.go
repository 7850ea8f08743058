package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv substitutes environment variables into raw YAML before parsing.
// Variables are written as Go-template lookups ({{.OPENAI_API_KEY}}) rather
// than shell-style $VAR, so secrets and prompt text containing literal $
// characters survive untouched.
//
// A variable that is not set expands to the empty string; the validator is
// responsible for rejecting required fields left empty. Content that fails
// to parse or execute as a template is returned as-is, leaving the YAML
// parser to report the real problem.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := map[string]string{}
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env[key] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
