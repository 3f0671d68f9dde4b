package main

import "github.com/encodeous/dvroute/cmd"

func main() {
	cmd.Execute()
}
