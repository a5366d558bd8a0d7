package main

import "taxchat/cmd"

func main() {
	cmd.Execute()
}
