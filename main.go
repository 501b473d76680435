package main

import "github.com/wemarket/qr-order/cli"

func main() {
	cli.Execute()
}
