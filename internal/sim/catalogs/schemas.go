package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Catalog files are the only external data format this core owns, so
// they get validated against a schema before unmarshalling; a rejected
// file fails Load rather than surfacing later as odd sim behavior.

const itemsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name", "texture_id", "dimens"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "name": {"type": "string", "minLength": 1},
      "texture_id": {"type": "string", "minLength": 1},
      "dimens": {
        "type": "array",
        "items": {"type": "integer", "minimum": 1},
        "minItems": 2,
        "maxItems": 2
      }
    },
    "additionalProperties": false
  }
}`

const recipesSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["recipe_id", "name", "ingredients", "output"],
    "properties": {
      "recipe_id": {"type": "string", "minLength": 1},
      "name": {"type": "string", "minLength": 1},
      "ingredients": {
        "type": "array",
        "minItems": 1,
        "items": {"$ref": "#/$defs/item_count"}
      },
      "output": {"$ref": "#/$defs/item_count"}
    },
    "additionalProperties": false
  },
  "$defs": {
    "item_count": {
      "type": "object",
      "required": ["item", "count"],
      "properties": {
        "item": {"type": "string", "minLength": 1},
        "count": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    }
  }
}`

const layoutSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["inventory", "crafting", "cell_size"],
  "properties": {
    "inventory": {"$ref": "#/$defs/coords"},
    "crafting": {"$ref": "#/$defs/coords"},
    "cell_size": {"type": "integer", "minimum": 1}
  },
  "additionalProperties": false,
  "$defs": {
    "coords": {
      "type": "object",
      "required": ["pos", "dimens"],
      "properties": {
        "pos": {"$ref": "#/$defs/vec2"},
        "dimens": {"$ref": "#/$defs/vec2"}
      },
      "additionalProperties": false
    },
    "vec2": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": {"type": "integer"},
        "y": {"type": "integer"}
      },
      "additionalProperties": false
    }
  }
}`

func validateSchema(name, schemaSrc string, raw []byte) error {
	s, err := jsonschema.CompileString(name, schemaSrc)
	if err != nil {
		return fmt.Errorf("%s: compile schema: %w", name, err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
