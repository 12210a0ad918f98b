package main

import "imgbridge/internal/cli"

// Version is overridable at build time with
// -ldflags "-X main.Version=v1.2.3".
var Version = "dev"

func main() {
	cli.Execute(Version)
}
