package main

import "github.com/wayfarer-planner/server/internal/cli"

func main() {
	cli.Execute()
}
