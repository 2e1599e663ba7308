package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BibspecPrefix marks a named remote collection, e.g. bib://acl/2018.
const BibspecPrefix = "bib://"

// ListSpec is the bibspec that lists the known collections.
const ListSpec = BibspecPrefix + "list"

// IsBibspec reports whether source names a remote collection.
func IsBibspec(source string) bool {
	return strings.HasPrefix(source, BibspecPrefix)
}

// BranchError reports a bibspec path segment missing from the collection.
type BranchError struct {
	Spec    string
	Branch  string
	Options []string
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("invalid branch %q in bib specification %q (options at this level: %s)",
		e.Branch, e.Spec, strings.Join(e.Options, ", "))
}

// Collection is one entry of the collection list.
type Collection struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ResolveBibspec expands a bibspec into the files it names. The first path
// segment selects <database_url>/<name>.yml; further segments descend into
// that document. Every file list below the selected node is returned, in
// document order.
func (in *Ingester) ResolveBibspec(ctx context.Context, spec string) ([]string, error) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(spec, BibspecPrefix), "/ "), "/")
	if segments[0] == "" {
		return nil, fmt.Errorf("empty bib specification %q", spec)
	}

	uri := in.databaseURL + segments[0] + ".yml"
	data, err := in.fetcher.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("loading resource %s: %w", segments[0], err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", uri, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	node := doc.Content[0]
	for _, seg := range segments[1:] {
		child, options := lookup(node, seg)
		if child == nil {
			return nil, &BranchError{Spec: spec, Branch: seg, Options: options}
		}
		node = child
	}
	return collectFiles(node), nil
}

// lookup returns the value under key in a mapping node, or the keys that
// do exist.
func lookup(node *yaml.Node, key string) (*yaml.Node, []string) {
	if node.Kind != yaml.MappingNode {
		return nil, nil
	}
	var options []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], nil
		}
		options = append(options, node.Content[i].Value)
	}
	return nil, options
}

func collectFiles(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return nil
		}
		return []string{node.Value}
	case yaml.SequenceNode:
		var files []string
		for _, c := range node.Content {
			files = append(files, collectFiles(c)...)
		}
		return files
	case yaml.MappingNode:
		var files []string
		for i := 1; i < len(node.Content); i += 2 {
			files = append(files, collectFiles(node.Content[i])...)
		}
		return files
	case yaml.AliasNode:
		return collectFiles(node.Alias)
	}
	return nil
}

// ListCollections reads the tab-separated collection list.
func (in *Ingester) ListCollections(ctx context.Context) ([]Collection, error) {
	data, err := in.fetcher.Get(ctx, in.databaseURL+"list.txt")
	if err != nil {
		return nil, fmt.Errorf("loading collection list: %w", err)
	}
	var list []Collection
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, desc, _ := strings.Cut(line, "\t")
		list = append(list, Collection{Name: strings.TrimSpace(name), Description: strings.TrimSpace(desc)})
	}
	return list, sc.Err()
}
