package main

import "github.com/SatoshiJr1/liveshop-link-sub003/internal/cli"

func main() {
	cli.Execute()
}
