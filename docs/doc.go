// Package docs provides generated OpenAPI documentation.
//
// sdx API
//
//	@title			sdx API
//	@version		1.0
//	@description	Clinical data extraction API for uploading source artifacts, running the extraction pipeline, and retrieving validated records.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/whitewolf2000ani/sdx
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8085
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/sdx/serve.go -o ./swagger --parseDependency --parseInternal
