package main

import "github.com/khomabhena/h5-airtime/internal/cli"

func main() {
	cli.Execute()
}
