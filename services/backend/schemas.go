package backend

import (
	"bytes"
	"embed"
	"encoding/json"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemasFS embed.FS

const schemaBaseURL = "https://observo.local/schemas/"

// Schemas holds the compiled JSON schemas of the create payloads, by flow kind.
type Schemas map[string]*jsonschema.Schema

// LoadSchemas compiles the embedded payload schemas.
func LoadSchemas() (Schemas, error) {
	entries, err := schemasFS.ReadDir("schemas")
	if err != nil {
		return nil, errors.Wrap(err, "reading schemas")
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true

	kinds := make([]string, 0, len(entries))
	for _, entry := range entries {
		raw, err := schemasFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "reading schema %s", entry.Name())
		}
		if err = c.AddResource(schemaBaseURL+entry.Name(), bytes.NewReader(raw)); err != nil {
			return nil, errors.Wrapf(err, "loading schema %s", entry.Name())
		}
		kinds = append(kinds, strings.TrimSuffix(entry.Name(), ".json"))
	}

	schemas := make(Schemas, len(kinds))
	for _, kind := range kinds {
		compiled, err := c.Compile(schemaBaseURL + kind + ".json")
		if err != nil {
			return nil, errors.Wrapf(err, "compiling schema %s", kind)
		}
		schemas[kind] = compiled
	}
	return schemas, nil
}

// Check validates the JSON encoding of `payload` against the `kind` schema; kinds without a schema pass.
func (s Schemas) Check(kind string, payload []byte) error {
	schema, ok := s[kind]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return errors.Wrap(err, "decoding payload")
	}
	return schema.Validate(doc)
}
