// Package docs provides generated OpenAPI documentation.
//
// Fable API
//
//	@title			Fable API
//	@version		1.0
//	@description	Illustrated storybook API for managing books, pages and illustration flows.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/fablehouse/fable
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package docs

//go:generate swag init -g ../cmd/fable/serve.go -o ./swagger --parseDependency --parseInternal
