package main

import "github.com/artbid/marketplace/cmd"

func main() {
	cmd.Execute()
}
