package main

import "github.com/devicelab-dev/maestro-ios-core/pkg/cli"

func main() {
	cli.Execute()
}
