package llm

import "github.com/santhosh-tekuri/jsonschema/v5"

// receiptPayloadSchema is the structural gate applied after repair. It is
// deliberately permissive (missing fields and nulls are the normalizer's
// job) and only rejects shapes no repair can recover: nested structures
// where a scalar belongs. Items stay unconstrained; a non-list survives
// here and is defaulted downstream.
var receiptPayloadSchema = jsonschema.MustCompileString("receipt.json", `{
	"type": "object",
	"properties": {
		"merchantName":  {"type": ["string", "number", "boolean", "null"]},
		"totalAmount":   {"type": ["string", "number", "boolean", "null"]},
		"purchaseDate":  {"type": ["string", "number", "boolean", "null"]}
	}
}`)
