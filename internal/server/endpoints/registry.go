package endpoints

import (
	"github.com/fablehouse/fable/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Book endpoints
		&CreateBookEndpoint{},
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&DeleteBookEndpoint{},
		&BookStatusEndpoint{},
		&IllustrateBookEndpoint{},
		&ExportBookEndpoint{},

		// Page endpoints
		&ListPagesEndpoint{},
		&ReplacePagePhotoEndpoint{},

		// Flow endpoints
		&ListFlowsEndpoint{},
		&GetFlowEndpoint{},

		// Asset serving
		&AssetsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// BookCommands groups book operations for the CLI "books" subcommand.
func BookCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateBookEndpoint{},
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&DeleteBookEndpoint{},
		&BookStatusEndpoint{},
		&IllustrateBookEndpoint{},
		&ExportBookEndpoint{},
		&ListPagesEndpoint{},
	}
}

// FlowCommands groups flow operations for the CLI "flows" subcommand.
func FlowCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListFlowsEndpoint{},
		&GetFlowEndpoint{},
	}
}
