// Package docs registers the OpenAPI document of the placement API with swag,
// which gin-swagger serves under /swagger.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag/v2"
)

//go:embed swagger.json
var docTemplate string

// SwaggerInfo holds the document metadata. Host is left empty so the UI
// targets whichever host served it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Farmtrack Placement API",
	Description:      "Placement consistency audit, reconciliation and history reconstruction",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
