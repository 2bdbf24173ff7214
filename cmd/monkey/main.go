package main

import "github.com/funvibe/monkey/pkg/cli"

func main() {
	cli.Run()
}
