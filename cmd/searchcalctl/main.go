package main

import "github.com/yanqian/searchcal/internal/cli"

func main() {
	cli.Execute()
}
