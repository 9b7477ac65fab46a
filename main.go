package main

import "tubedeck/cmd"

func main() {
	cmd.Execute()
}
