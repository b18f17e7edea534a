package main

import "github.com/samsaffron/bizarro/cmd"

func main() {
	cmd.Execute()
}
