package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/text/encoding/htmlindex"
)

// Policies for tool output that is not valid UTF-8. Only replace is
// enforced: the MCP client decodes every frame with encoding/json, which
// already substitutes U+FFFD before any policy could look at the bytes.
const (
	EncodingErrorsStrict  = "strict"
	EncodingErrorsReplace = "replace"
	EncodingErrorsIgnore  = "ignore"
)

const defaultEncoding = "utf-8"

// ErrNoServers is returned when the servers file has no mcpServers section.
var ErrNoServers = errors.New("servers config has no mcpServers section")

// ServerConfig is one entry of the mcpServers section.
type ServerConfig struct {
	Name                 string            `mapstructure:"-"`
	Command              string            `mapstructure:"command"`
	Args                 []string          `mapstructure:"args"`
	Env                  map[string]string `mapstructure:"env"`
	Encoding             string            `mapstructure:"encoding"`
	EncodingErrorHandler string            `mapstructure:"encoding_error_handler"`

	// UnknownKeys lists entry keys that did not map to a field.
	UnknownKeys []string `mapstructure:"-"`
}

// IsUTF8 reports whether the server declared UTF-8 output.
func (s ServerConfig) IsUTF8() bool {
	return s.Encoding == defaultEncoding
}

// Warnings lists settings in the entry that are accepted but cannot take
// effect.
func (s ServerConfig) Warnings() []string {
	var warnings []string
	if len(s.UnknownKeys) > 0 {
		warnings = append(warnings, fmt.Sprintf("unknown keys %s", strings.Join(s.UnknownKeys, ", ")))
	}
	if !s.IsUTF8() {
		warnings = append(warnings, fmt.Sprintf("encoding %s is not supported, output is read as utf-8", s.Encoding))
	}
	if s.EncodingErrorHandler != EncodingErrorsReplace {
		warnings = append(warnings, fmt.Sprintf("encoding_error_handler %s is not supported, invalid utf-8 is replaced", s.EncodingErrorHandler))
	}
	return warnings
}

// LoadServers reads the servers file. Entries keep the order they have in
// the file, which decides tool-name collisions.
func LoadServers(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers config: %w", err)
	}

	servers, err := ParseServers(data)
	if err != nil {
		return nil, fmt.Errorf("invalid servers config %s: %w", path, err)
	}
	return servers, nil
}

// ParseServers decodes a servers document.
func ParseServers(data []byte) ([]ServerConfig, error) {
	var doc struct {
		MCPServers json.RawMessage `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	if len(doc.MCPServers) == 0 || bytes.Equal(bytes.TrimSpace(doc.MCPServers), []byte("null")) {
		return nil, ErrNoServers
	}

	names, entries, err := orderedObject(doc.MCPServers)
	if err != nil {
		return nil, fmt.Errorf("mcpServers: %w", err)
	}

	servers := make([]ServerConfig, 0, len(names))
	for i, name := range names {
		server, err := decodeServer(name, entries[i])
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", name, err)
		}
		servers = append(servers, server)
	}

	return servers, nil
}

// orderedObject splits a JSON object into its keys, in document order, and
// raw values. A repeated key keeps its first position and its last value.
func orderedObject(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected an object")
	}

	var (
		names   []string
		values  []json.RawMessage
		indexOf = make(map[string]int)
	)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected a string key")
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", key, err)
		}

		if i, seen := indexOf[key]; seen {
			values[i] = value
			continue
		}
		indexOf[key] = len(names)
		names = append(names, key)
		values = append(values, value)
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, nil, err
	}

	return names, values, nil
}

func decodeServer(name string, raw json.RawMessage) (ServerConfig, error) {
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return ServerConfig{}, fmt.Errorf("expected an object: %w", err)
	}

	server := ServerConfig{Name: name}
	var meta mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           &server,
		Metadata:         &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ServerConfig{}, err
	}
	if err := decoder.Decode(input); err != nil {
		return ServerConfig{}, err
	}

	sort.Strings(meta.Unused)
	server.UnknownKeys = meta.Unused

	if strings.TrimSpace(server.Command) == "" {
		return ServerConfig{}, fmt.Errorf("command is required")
	}

	server.Encoding, err = canonicalEncoding(server.Encoding)
	if err != nil {
		return ServerConfig{}, err
	}

	switch server.EncodingErrorHandler {
	case "":
		server.EncodingErrorHandler = EncodingErrorsReplace
	case EncodingErrorsStrict, EncodingErrorsReplace, EncodingErrorsIgnore:
	default:
		return ServerConfig{}, fmt.Errorf("unknown encoding_error_handler %q (want strict, replace or ignore)", server.EncodingErrorHandler)
	}

	if server.Env == nil {
		server.Env = map[string]string{}
	}

	return server, nil
}

// canonicalEncoding maps an encoding label such as "UTF8" or "latin-1" to
// its WHATWG name.
func canonicalEncoding(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return defaultEncoding, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q", label)
	}

	name, err := htmlindex.Name(enc)
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q", label)
	}
	return name, nil
}
