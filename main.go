package main

import "metro-ticketing/cmd"

func main() {
	cmd.Execute()
}
