// Package docs provides generated OpenAPI documentation.
//
// Lectern API
//
//	@title			Lectern API
//	@version		1.0
//	@description	Turns textbook PDFs into narrated, captioned lessons.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/lectern
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -d ../ -g docs/doc.go -o ./swagger --parseInternal
