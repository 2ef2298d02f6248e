package main

import (
	"os"
)

const version = "1.0.0"

//	@title						subsync API
//	@version					1.0
//	@description				Zotlo subscription billing integration.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerToken
//	@in							header
//	@name						Authorization
func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
