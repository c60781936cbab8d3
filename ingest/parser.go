// Package ingest turns raw documents (JSON, YAML, plain text, HTML) into
// flat, ordered statement lists for the analysis pipeline. The core never
// sees raw uploads; it consumes the statement lists produced here.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// sentenceBoundary splits prose on terminal punctuation followed by
// whitespace.
var sentenceBoundary = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// Statements parses document content into an ordered statement list.
// Structured formats are tried first (JSON, then YAML); their scalar
// leaves are collected in document order. Anything else is treated as
// plain text: one statement per non-empty line, or naive sentence
// splitting for single-line prose. Malformed content never fails; worst
// case the whole document becomes one statement.
func Statements(content []byte) []string {
	if items, ok := flattenJSON(content); ok {
		return items
	}
	if items, ok := flattenYAML(content); ok {
		return items
	}
	return plainStatements(string(content))
}

// flattenJSON collects scalar leaves of a JSON document in order. Only
// top-level objects and arrays count; a bare scalar falls through to the
// plain-text path, matching how single values are treated everywhere else.
func flattenJSON(content []byte) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil, false
	}

	items := []string{}
	if err := flattenJSONContainer(dec, delim, &items); err != nil {
		return nil, false
	}

	// Reject trailing garbage after the document.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return items, true
}

// flattenJSONContainer consumes the body of an already-opened container.
func flattenJSONContainer(dec *json.Decoder, open json.Delim, items *[]string) error {
	isObject := open == '{'
	for dec.More() {
		if isObject {
			// Consume the key; only values become statements.
			if _, err := dec.Token(); err != nil {
				return err
			}
		}
		if err := flattenJSONValue(dec, items); err != nil {
			return err
		}
	}
	// Consume the closing delimiter.
	_, err := dec.Token()
	return err
}

func flattenJSONValue(dec *json.Decoder, items *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		return flattenJSONContainer(dec, t, items)
	case string:
		appendStatement(items, t)
	case json.Number:
		appendStatement(items, t.String())
	case bool:
		appendStatement(items, strconv.FormatBool(t))
	case nil:
		// Nulls carry no statement.
	}
	return nil
}

// flattenYAML collects scalar leaves of a YAML mapping or sequence in
// document order, via the node API so key order is preserved.
func flattenYAML(content []byte) ([]string, bool) {
	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, false
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, false
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode && top.Kind != yaml.SequenceNode {
		return nil, false
	}

	items := []string{}
	flattenYAMLNode(top, &items)
	return items, true
}

func flattenYAMLNode(node *yaml.Node, items *[]string) {
	switch node.Kind {
	case yaml.MappingNode:
		// Content alternates key, value; only values become statements.
		for i := 1; i < len(node.Content); i += 2 {
			flattenYAMLNode(node.Content[i], items)
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			flattenYAMLNode(child, items)
		}
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return
		}
		appendStatement(items, node.Value)
	case yaml.AliasNode:
		if node.Alias != nil {
			flattenYAMLNode(node.Alias, items)
		}
	}
}

// plainStatements splits free text into statements: one per non-empty
// line, or sentence boundaries when the text is a single line of prose.
func plainStatements(content string) []string {
	lines := []string{}
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) > 1 {
		return lines
	}
	if len(lines) == 0 {
		return []string{}
	}

	sentences := []string{}
	for _, s := range sentenceBoundary.Split(lines[0], -1) {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	if len(sentences) == 0 {
		return lines
	}
	return sentences
}

func appendStatement(items *[]string, s string) {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		*items = append(*items, trimmed)
	}
}
