package main

import "github.com/papapumpkin/resgraph/cmd"

func main() {
	cmd.Execute()
}
