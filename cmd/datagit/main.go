package main

import "github.com/datagit-project/datagit/cmd/datagit/cmd"

func main() {
	cmd.Execute()
}
