package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadPR reads a pull-request result from a YAML or JSON file.
// A path of "-" reads from r.
func LoadPR(path string, r io.Reader) (*PRDescription, error) {
	var d PRDescription
	if err := decodeFile(path, r, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadReview reads a review result from a YAML or JSON file.
// A path of "-" reads from r.
func LoadReview(path string, r io.Reader) (*Review, error) {
	var rv Review
	if err := decodeFile(path, r, &rv); err != nil {
		return nil, err
	}
	rv.Normalize()
	return &rv, nil
}

func decodeFile(path string, r io.Reader, out any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	// yaml.v3 accepts JSON documents as well.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Errorf("%s is empty", path)
		}
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}

// Schema returns the JSON schema describing the result file for kind, so the
// external reviewer can emit a conforming document.
func Schema(kind Kind) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var schema *jsonschema.Schema
	switch kind {
	case KindPR:
		schema = reflector.Reflect(&PRDescription{})
	case KindReview:
		schema = reflector.Reflect(&Review{})
	default:
		return nil, errors.Errorf("unknown document kind %q", kind)
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	return out, nil
}
