package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apiclient "github.com/donaldgifford/mailin-buyback/internal/api/client"
)

// readDocument decodes a YAML or JSON file into dst using dst's JSON field
// names. A path of "-" reads stdin.
func readDocument(path string, stdin io.Reader, dst any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // path from CLI flag
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// parseEdits turns ITEM_ID:FIELD=VALUE arguments into item edits.
func parseEdits(args []string) ([]apiclient.ItemEdit, error) {
	edits := make([]apiclient.ItemEdit, 0, len(args))
	for _, a := range args {
		target, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("edit %q: expected ITEM_ID:FIELD=VALUE", a)
		}
		itemID, field, ok := strings.Cut(target, ":")
		if !ok || itemID == "" || field == "" {
			return nil, fmt.Errorf("edit %q: expected ITEM_ID:FIELD=VALUE", a)
		}
		edits = append(edits, apiclient.ItemEdit{ItemID: itemID, Field: field, Value: value})
	}
	return edits, nil
}
