// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package config

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the config file schema.
const SchemaID = "https://renegan.app/schemas/campusauth.config.schema.json"

// fileConfig documents the YAML file layout. Durations are strings as
// written in the file.
type fileConfig struct {
	BaseURL     string        `json:"base_url,omitempty" jsonschema:"description=Backend base URL,format=uri"`
	Timeout     string        `json:"timeout,omitempty" jsonschema:"description=Timeout for each backend request (e.g. 15s),pattern=^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"`
	OTPCooldown int           `json:"otp_cooldown,omitempty" jsonschema:"description=Seconds before a one-time code can be resent,minimum=0"`
	SessionFile string        `json:"session_file,omitempty" jsonschema:"description=Where the signed-in session is stored"`
	MetricsAddr string        `json:"metrics_addr,omitempty" jsonschema:"description=Serve Prometheus metrics on this address while a flow runs"`
	Log         fileLogConfig `json:"log,omitempty"`
}

type fileLogConfig struct {
	Format string `json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	File   string `json:"file,omitempty" jsonschema:"description=Log file used while a flow runs"`
}

var (
	compiledOnce   sync.Once
	compiledSchema *jschema.Schema
	compileErr     error
)

// GenerateSchema returns the JSON Schema for the config file.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&fileConfig{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "campusauth configuration"
	schema.Description = "Schema for campusauth config.yaml files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateFile checks YAML config data against the schema. Empty files are
// valid.
func ValidateFile(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_FILE_INVALID").Wrapf(err, "invalid YAML")
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so numbers arrive as the validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("CONFIG_FILE_INVALID").Wrapf(err, "config must be a mapping with string keys")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("CONFIG_FILE_INVALID").Wrap(err)
	}

	sch, err := compiled()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("CONFIG_FILE_INVALID").Wrapf(err, "config does not match schema")
	}
	return nil
}

func compiled() (*jschema.Schema, error) {
	compiledOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			compileErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrap(err)
			return
		}
		compiledSchema, compileErr = c.Compile(SchemaID)
		if compileErr != nil {
			compileErr = oops.Code("CONFIG_SCHEMA_FAILED").Wrap(compileErr)
		}
	})
	return compiledSchema, compileErr
}
