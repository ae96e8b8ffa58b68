package main

import "github.com/fetchql/fetchql/cli"

func main() {
	cli.Execute()
}
